// Package storage persists uploaded videos, sampled frames and reports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/chenBenjamin97/football-tactics/pkg/utils"
)

//ErrNotFound is returned by Get when the object does not exist
var ErrNotFound = errors.New("storage: object not found")

//ErrInvalidPath is returned for empty or escaping object paths
var ErrInvalidPath = errors.New("storage: invalid object path")

//Blob is a flat object store addressed by slash-separated paths
type Blob interface {
	//Put stores data and returns the object's public reference (gs://..., file://...)
	Put(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
	Get(ctx context.Context, objectPath string) ([]byte, error)
	//List returns object paths starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	//URL is the reference Put returns for objectPath, without touching the store
	URL(objectPath string) string
	//Name identifies the backend in health output
	Name() string
}

func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

//VideoPath returns the object path of an uploaded video
func VideoPath(videoID, ext string) string {
	return path.Join(utils.VideosFolder, videoID+ext)
}

//FramePath returns the object path of the n-th sampled frame of a video
func FramePath(videoID string, n int) string {
	return path.Join(utils.FramesFolder, videoID, frameName(n))
}

//AnnotatedFramePath returns the object path of an annotated weakness frame
func AnnotatedFramePath(videoID string, n int) string {
	return path.Join(utils.FramesFolder, videoID, "annotated", frameName(n))
}

//FramesPrefix returns the prefix under which all frames of a video live
func FramesPrefix(videoID string) string {
	return path.Join(utils.FramesFolder, videoID) + "/"
}

//ResultPath returns the object path of a video's report
func ResultPath(videoID string) string {
	return path.Join(utils.ResultsFolder, videoID+".json")
}

func frameName(n int) string {
	return fmt.Sprintf("frame_%04d.jpg", n)
}
