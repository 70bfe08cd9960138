// Concrete implementations of distortion metrics
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

func checkPair(original, augmented []float64) error {
	if len(original) == 0 || len(augmented) == 0 {
		return fmt.Errorf("empty images")
	}
	if len(original) != len(augmented) {
		return fmt.Errorf("image length mismatch: %d vs %d", len(original), len(augmented))
	}
	return nil
}

func meanSquaredError(original, augmented []float64) float64 {
	d := floats.Distance(original, augmented, 2)
	return d * d / float64(len(original))
}

// MSE implements the mean squared error
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, augmented []float64) (float64, error) {
	if err := checkPair(original, augmented); err != nil {
		return 0, err
	}
	return meanSquaredError(original, augmented), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean squared pixel difference"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// PSNR implements Peak Signal-to-Noise Ratio. The peak is 1 for images in
// [0,1] and 255 otherwise.
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, augmented []float64) (float64, error) {
	if err := checkPair(original, augmented); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, augmented)
	if mse == 0 {
		return math.Inf(1), nil
	}

	peak := 255.0
	if floats.Max(original) <= 1 && floats.Min(original) >= 0 {
		peak = 1.0
	}
	return 20 * math.Log10(peak/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio between source and augmented image"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// MaxAbsDiff is the largest absolute pixel difference
type MaxAbsDiff struct{}

// NewMaxAbsDiff creates a new max-abs-diff metric
func NewMaxAbsDiff() *MaxAbsDiff {
	return &MaxAbsDiff{}
}

func (m *MaxAbsDiff) Calculate(original, augmented []float64) (float64, error) {
	if err := checkPair(original, augmented); err != nil {
		return 0, err
	}
	return floats.Distance(original, augmented, math.Inf(1)), nil
}

func (m *MaxAbsDiff) GetName() string {
	return "Max Abs Diff"
}

func (m *MaxAbsDiff) GetDescription() string {
	return "Largest absolute pixel difference"
}

func (m *MaxAbsDiff) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

func (m *MaxAbsDiff) IsHigherBetter() bool {
	return false
}
