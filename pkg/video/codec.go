package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

//EncodeJPEG compresses a BGR frame at given quality (0-100)
func EncodeJPEG(m gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("EncodeJPEG: Error, got '%v'", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

//DecodeImage decodes a JPEG/PNG buffer into a BGR Mat the caller must close
func DecodeImage(data []byte) (gocv.Mat, error) {
	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return m, fmt.Errorf("DecodeImage: Error, got '%v'", err)
	}
	if m.Empty() {
		m.Close()
		return gocv.NewMat(), fmt.Errorf("DecodeImage: Error, empty image")
	}
	return m, nil
}
