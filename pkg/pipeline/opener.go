package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
)

//Opener resolves a video reference into a decodable stream
type Opener interface {
	Open(ctx context.Context, ref string) (video.Source, error)
}

//FileOpener treats references as local file paths
type FileOpener struct{}

func (FileOpener) Open(ctx context.Context, ref string) (video.Source, error) {
	return video.OpenFile(ref)
}

//BlobOpener downloads the referenced object into a temporary file before opening it.
//OpenCV only decodes from paths, so the download cannot be streamed.
type BlobOpener struct {
	Store  storage.Blob
	TmpDir string
}

func (b BlobOpener) Open(ctx context.Context, ref string) (video.Source, error) {
	data, err := b.Store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", video.ErrSourceUnreadable, ref)
		}
		return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}

	tmp, err := os.CreateTemp(b.TmpDir, "video-*"+path.Ext(ref))
	if err != nil {
		return nil, fmt.Errorf("BlobOpener.Open: Error, got '%v'", err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(name)
		return nil, fmt.Errorf("BlobOpener.Open: Error writing temp file, got '%v' '%v'", werr, cerr)
	}

	src, err := video.OpenFile(name)
	if err != nil {
		os.Remove(name)
		return nil, err
	}
	return &tempSource{Source: src, path: name}, nil
}

//tempSource removes its backing file on Close
type tempSource struct {
	video.Source
	path string
}

func (t *tempSource) Close() error {
	err := t.Source.Close()
	os.Remove(t.path)
	return err
}

//SourceOpener returns a fixed, already opened source whatever the reference
type SourceOpener struct {
	Source video.Source
}

func (s SourceOpener) Open(ctx context.Context, ref string) (video.Source, error) {
	if s.Source == nil {
		return nil, video.ErrSourceUnreadable
	}
	return s.Source, nil
}
