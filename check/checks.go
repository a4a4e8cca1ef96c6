package check

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"rplidar/rplidar"
)

// RotationSource is the slice of the driver the checks need: a bounded
// rotation walk with guaranteed scan teardown.
type RotationSource interface {
	EachRotation(maxRotations int, fn func(rplidar.Rotation) error) error
}

// Collect pulls n rotations from the device, stamping the arrival time
// of each. The stamps feed the scan rate check; the rotations feed the
// quality and resolution checks.
func Collect(src RotationSource, n int) ([]rplidar.Rotation, []time.Time, error) {
	var rotations []rplidar.Rotation
	var stamps []time.Time

	err := src.EachRotation(n, func(r rplidar.Rotation) error {
		rotations = append(rotations, r)
		stamps = append(stamps, time.Now())
		glog.V(1).Infof("collected rotation %v: %v points", len(rotations), len(r))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("collecting rotations: %w", err)
	}
	if len(rotations) < n {
		return nil, nil, fmt.Errorf("collected %v of %v rotations", len(rotations), n)
	}
	return rotations, stamps, nil
}

// ScanRate measures the rotation frequency from the intervals between
// consecutive rotation stamps and compares the mean against the
// configured band.
func ScanRate(stamps []time.Time, lim *Limits) *Report {
	r := NewReport("scan_rate")
	if len(stamps) < 2 {
		return r.Fail(fmt.Errorf("need at least 2 rotation stamps, got %v", len(stamps)))
	}

	var sum, min, max float64
	min = math.Inf(1)
	for i := 1; i < len(stamps); i++ {
		hz := 1.0 / stamps[i].Sub(stamps[i-1]).Seconds()
		sum += hz
		if hz < min {
			min = hz
		}
		if hz > max {
			max = hz
		}
	}
	mean := sum / float64(len(stamps)-1)

	r.Add("scan_rate_mean", mean, "Hz", limit(lim.ScanRate.MinHz), limit(lim.ScanRate.MaxHz))
	r.Add("scan_rate_min", min, "Hz", nil, nil)
	r.Add("scan_rate_max", max, "Hz", nil, nil)
	r.Finish()
	return r
}

// SignalQuality measures the quality statistics across all points and
// the share of valid returns relative to the nominal one point per
// degree.
func SignalQuality(rotations []rplidar.Rotation, lim *Limits) *Report {
	r := NewReport("signal_quality")
	if len(rotations) == 0 {
		return r.Fail(fmt.Errorf("no rotations collected"))
	}

	var sum float64
	minQ, maxQ := math.Inf(1), 0.0
	points := 0
	for _, rotation := range rotations {
		for _, p := range rotation {
			q := float64(p.Quality)
			sum += q
			if q < minQ {
				minQ = q
			}
			if q > maxQ {
				maxQ = q
			}
			points++
		}
	}
	if points == 0 {
		return r.Fail(fmt.Errorf("no valid points in %v rotations", len(rotations)))
	}

	// The rotations only carry valid returns, so the valid share is the
	// point count against the nominal 360 points per sweep.
	validPct := 100.0 * float64(points) / float64(360*len(rotations))
	if validPct > 100.0 {
		validPct = 100.0
	}

	r.Add("quality_mean", sum/float64(points), "", limit(lim.SignalQuality.MinQuality), nil)
	r.Add("quality_min", minQ, "", nil, nil)
	r.Add("quality_max", maxQ, "", nil, nil)
	r.Add("valid_point_percentage", validPct, "%", limit(lim.SignalQuality.MinValidPercent), nil)
	r.Finish()
	return r
}

// AngularResolution measures the mean gap between consecutive points of
// each rotation. Gaps of 10 degrees or more are treated as occlusions
// rather than resolution and excluded.
func AngularResolution(rotations []rplidar.Rotation, lim *Limits) *Report {
	const occlusionDeg = 10.0

	r := NewReport("angular_resolution")
	if len(rotations) == 0 {
		return r.Fail(fmt.Errorf("no rotations collected"))
	}

	var sum float64
	gaps := 0
	minPoints := math.MaxInt32
	for _, rotation := range rotations {
		if len(rotation) < minPoints {
			minPoints = len(rotation)
		}
		for i := 1; i < len(rotation); i++ {
			gap := rotation[i].Angle - rotation[i-1].Angle
			if gap < 0 {
				gap += 360.0
			}
			if gap >= occlusionDeg {
				continue
			}
			sum += gap
			gaps++
		}
	}
	if gaps == 0 {
		return r.Fail(fmt.Errorf("no usable angle gaps in %v rotations", len(rotations)))
	}

	r.Add("angular_resolution_mean", sum/float64(gaps), "deg",
		nil, limit(lim.AngularResolution.MaxResolutionDeg))
	r.Add("points_per_rotation_min", float64(minPoints), "",
		limit(float64(lim.AngularResolution.MinPointsPerRotation)), nil)
	r.Finish()
	return r
}
