package volio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"volreslice/pkg/volume"
)

// imageExts lists the slice image formats ReadStack accepts.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// ReadStack loads every image in dir as one z slice of a uint16 volume.
// Slices are ordered by the number embedded in their file names, so
// slice_2.png comes before slice_10.png. All images must share the size of
// the first one. Pixels are stored as 16-bit grey, so 8-bit images are
// widened the way image/color does it (200 becomes 200*0x101).
func ReadStack(dir string, spacing [3]float64) (*volume.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		numI, numJ := extractNumber(files[i]), extractNumber(files[j])
		if numI != numJ {
			return numI < numJ
		}
		return files[i] < files[j]
	})

	var v *volume.Volume
	var data []uint16
	var width, height int
	for z, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		b := img.Bounds()
		if v == nil {
			width, height = b.Dx(), b.Dy()
			v, err = volume.New(volume.Uint16, volume.Extent{0, width - 1, 0, height - 1, 0, len(files) - 1}, 1)
			if err != nil {
				return nil, err
			}
			v.Spacing = spacing
			if data, err = volume.Scalars[uint16](v); err != nil {
				return nil, err
			}
		} else if b.Dx() != width || b.Dy() != height {
			return nil, fmt.Errorf("image %s is %dx%d, expected %dx%d", name, b.Dx(), b.Dy(), width, height)
		}

		p := z * width * height
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, _, _, _ := img.At(x, y).RGBA()
				data[p] = uint16(r)
				p++
			}
		}
	}
	return v, nil
}

// extractNumber returns the digits of a file name as a number, or 0.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	num, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return num
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}
