package utils

import "math"

//SampleInterval returns how many decoded frames separate two sampled frames.
//A target rate above the native rate is capped, so every frame is emitted and none is duplicated.
func SampleInterval(nativeFPS, targetFPS float64) int {
	if nativeFPS <= 0 || targetFPS <= 0 || targetFPS >= nativeFPS {
		return 1
	}

	interval := int(math.Round(nativeFPS / targetFPS))
	if interval < 1 {
		return 1
	}
	return interval
}

//ExpectedSamples is floor(duration * rate) where duration comes from the native frame count.
//Returns 0 when the frame count is unknown, meaning sampling runs until the stream ends.
func ExpectedSamples(totalFrames int, nativeFPS, targetFPS float64) int {
	if totalFrames <= 0 || nativeFPS <= 0 || targetFPS <= 0 {
		return 0
	}
	if targetFPS > nativeFPS {
		targetFPS = nativeFPS
	}

	duration := float64(totalFrames) / nativeFPS
	// guard against 59.999999 * 5 style float error before flooring
	return int(math.Floor(duration*targetFPS + 1e-9))
}
