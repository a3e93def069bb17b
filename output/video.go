package output

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/icza/mjpeg"
)

// Timelapse writes the images at imagePaths as frames of an MJPEG AVI. Every
// frame is drawn onto the size of the first one.
func Timelapse(imagePaths []string, outputPath string, fps int32) (string, error) {
	if len(imagePaths) == 0 {
		return "", errors.New("timelapse needs at least one frame")
	}
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath += ".avi"
	}
	if fps <= 0 {
		fps = 2
	}
	first, err := decode(imagePaths[0])
	if err != nil {
		return "", err
	}
	bounds := first.Bounds()

	writer, err := mjpeg.New(outputPath, int32(bounds.Dx()), int32(bounds.Dy()), fps)
	if err != nil {
		return "", err
	}
	for _, path := range imagePaths {
		img, err := decode(path)
		if err != nil {
			writer.Close()
			return "", err
		}
		canvas := image.NewRGBA(bounds)
		draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
		draw.Draw(canvas, bounds, img, img.Bounds().Min, draw.Over)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 95}); err != nil {
			writer.Close()
			return "", err
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			writer.Close()
			return "", err
		}
	}
	return outputPath, writer.Close()
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
