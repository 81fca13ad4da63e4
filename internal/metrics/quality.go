// Still-image quality measures for captured snapshots
package metrics

import (
	"fmt"

	"gocv.io/x/gocv"
)

// BlurThreshold is the Laplacian variance below which a picture is reported
// as blurry.
const BlurThreshold = 100.0

// Quality describes one captured picture.
type Quality struct {
	// Sharpness is the variance of the Laplacian.
	Sharpness float64
	// Contrast is the standard deviation of the gray levels.
	Contrast float64
}

func (q Quality) Blurry() bool {
	return q.Sharpness < BlurThreshold
}

func (q Quality) String() string {
	s := fmt.Sprintf("sharpness %.0f, contrast %.1f", q.Sharpness, q.Contrast)
	if q.Blurry() {
		s += " (blurry)"
	}
	return s
}

// Measure computes sharpness and contrast of img, which may be gray or BGR.
func Measure(img gocv.Mat) (Quality, error) {
	if img.Empty() {
		return Quality{}, fmt.Errorf("empty image")
	}

	gray := ensureGrayscale(img)
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	contrast := stdDev(gray)

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	sd := stdDev(laplacian)

	return Quality{Sharpness: sd * sd, Contrast: contrast}, nil
}

func stdDev(m gocv.Mat) float64 {
	mean := gocv.NewMat()
	defer mean.Close()
	dev := gocv.NewMat()
	defer dev.Close()
	gocv.MeanStdDev(m, &mean, &dev)
	return dev.GetDoubleAt(0, 0)
}

func ensureGrayscale(input gocv.Mat) gocv.Mat {
	if input.Channels() == 1 {
		return input
	}

	gray := gocv.NewMat()
	gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	return gray
}
