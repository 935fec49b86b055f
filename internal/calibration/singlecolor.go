// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "image"

// SingleColorFraction is the share of pixels that fall in the most common
// web-safe palette entry.
func SingleColorFraction(img image.Image) (float64, error) {
	s, err := Estimate(img, EstimateOptions{SingleColor: true})
	if err != nil {
		return 0, err
	}
	return s.SingleColorFraction, nil
}

// IsSingleColor reports whether at least threshold of the frame is one palette color.
func IsSingleColor(img image.Image, threshold float64) (bool, error) {
	f, err := SingleColorFraction(img)
	if err != nil {
		return false, err
	}
	return f >= threshold, nil
}

// singleColorVerdict applies the configured policy to a measured fraction.
// flagged marks the sample; rejected keeps it from converging or becoming
// the best-seen exposure.
func (c Config) singleColorVerdict(fraction float64) (flagged, rejected bool) {
	if c.SingleColor == SingleColorOff {
		return false, false
	}
	flagged = fraction >= c.SingleColorThreshold
	return flagged, flagged && c.SingleColor == SingleColorReject
}

// webSafeIndex maps a color to its nearest entry in palette.WebSafe.
func webSafeIndex(r, g, b uint8) int {
	q := func(c uint8) int { return (int(c) + 25) / 51 }
	return q(r)*webSafeLevels*webSafeLevels + q(g)*webSafeLevels + q(b)
}
