package indicators

import "math"

// -----------------------------------------------------------------------------

// MeanStd returns the mean and population standard deviation of data.
func MeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))
	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// ZScore is 0 for a flat window.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// -----------------------------------------------------------------------------

// VolumeRatio compares the last volume with the average of the ones before it.
// A window without volume history yields 1.
func VolumeRatio(volumes []float64) float64 {
	if len(volumes) < 2 {
		return 1
	}
	last := volumes[len(volumes)-1]
	avg, _ := MeanStd(volumes[:len(volumes)-1])
	if avg <= 0 {
		if last == 0 {
			return 1
		}
		return last
	}
	return last / avg
}
