//nolint:staticcheck // too dumb with Db
package dsp

import "math"

// Spectrum is an averaged magnitude spectrum in dB.
type Spectrum struct {
	Db         []float64 // half-spectrum bins, dB
	BinHz      float64   // frequency per bin = sample_rate / fft_size
	SampleRate int
	Windows    int // number of frames averaged
}

// Nyquist returns the upper frequency of the spectrum.
func (s *Spectrum) Nyquist() float64 {
	return float64(s.SampleRate) / 2
}

// Bin returns the bin index for a frequency, clamped to the spectrum.
func (s *Spectrum) Bin(freq float64) int {
	bin := int(freq / s.BinHz)
	if bin < 0 {
		return 0
	}

	if bin >= len(s.Db) {
		return len(s.Db) - 1
	}

	return bin
}

// Freq returns the center frequency of a bin.
func (s *Spectrum) Freq(bin int) float64 {
	return (float64(bin) + 0.5) * s.BinHz
}

// Averaged computes an averaged power spectrum over up to maxWindows
// overlapping frames (50% hop). Squared magnitudes are accumulated in a
// float64 accumulator, averaged, then converted to dB. Returns nil when the
// input is shorter than one frame.
func Averaged(proc *Processor, samples []float64, sampleRate, maxWindows int) *Spectrum {
	fftSize := proc.Size()
	if len(samples) < fftSize {
		return nil
	}

	if maxWindows <= 0 || maxWindows > maxAvgedWin {
		maxWindows = maxAvgedWin
	}

	positions := windowPositions(len(samples), fftSize, maxWindows)
	if len(positions) == 0 {
		return nil
	}

	bins := proc.Bins()
	accum := make([]float64, bins)

	for _, pos := range positions {
		coeffs := proc.Coefficients(samples[pos : pos+fftSize])
		for i, c := range coeffs {
			re, im := real(c), imag(c)
			accum[i] += re*re + im*im
		}
	}

	db := make([]float64, bins)
	n := float64(len(positions))

	for i, powerSum := range accum {
		db[i] = MagnitudeToDb(math.Sqrt(powerSum / n))
	}

	return &Spectrum{
		Db:         db,
		BinHz:      float64(sampleRate) / float64(fftSize),
		SampleRate: sampleRate,
		Windows:    len(positions),
	}
}

// windowPositions returns evenly spaced FFT window start positions.
// Tracks with fewer possible windows than the cap yield every 50%-hop
// position; longer tracks are sampled evenly across their length.
func windowPositions(totalSamples, fftSize, maxWindows int) []int {
	available := totalSamples - fftSize
	if available < 0 {
		return nil
	}

	hopSize := fftSize / 2
	totalPossible := available/hopSize + 1

	if totalPossible <= maxWindows {
		positions := make([]int, 0, totalPossible)
		for pos := 0; pos+fftSize <= totalSamples; pos += hopSize {
			positions = append(positions, pos)
		}

		return positions
	}

	positions := make([]int, maxWindows)
	if maxWindows == 1 {
		positions[0] = available / 2

		return positions
	}

	for i := range maxWindows {
		positions[i] = available * i / (maxWindows - 1)
	}

	return positions
}

// BandAverage returns the mean dB level between startHz and endHz.
func (s *Spectrum) BandAverage(startHz, endHz float64) float64 {
	startBin := s.Bin(startHz)
	endBin := s.Bin(endHz)

	if startBin > endBin {
		return dbFloor
	}

	var sum float64
	for i := startBin; i <= endBin; i++ {
		sum += s.Db[i]
	}

	return sum / float64(endBin-startBin+1)
}

// Rolloff locates the -3 dB roll-off point and the width of the transition
// band down to -60 dB. The passband reference is the mean over the first
// quarter of the spectrum, excluding DC. Walks downward from Nyquist until
// the level rises above reference - 3 dB.
func (s *Spectrum) Rolloff() (rolloffHz, transitionHz float64) {
	if len(s.Db) < 8 {
		return s.Nyquist(), 0
	}

	refEnd := len(s.Db) / 4

	var refSum float64
	for i := 1; i < refEnd; i++ {
		refSum += s.Db[i]
	}

	refLevel := refSum / float64(refEnd-1)

	rolloffBin := len(s.Db) - 1
	for i := len(s.Db) - 1; i >= len(s.Db)/2; i-- {
		if s.Db[i] > refLevel-3 {
			rolloffBin = i

			break
		}
	}

	stopBin := len(s.Db) - 1
	for i := rolloffBin; i < len(s.Db); i++ {
		if s.Db[i] < refLevel-60 {
			stopBin = i

			break
		}
	}

	return s.Freq(rolloffBin), float64(stopBin-rolloffBin) * s.BinHz
}

const (
	brickWallWindow  = 10   // bins
	brickWallDropDb  = 40.0 // drop across the window that qualifies
	brickWallLevelDb = -60.0
)

// BrickWall scans from mid-spectrum towards Nyquist for a >= 40 dB drop
// within a 10-bin window starting from a level above -60 dB. Returns the
// cutoff frequency at the window center, or (0, false).
func (s *Spectrum) BrickWall() (float64, bool) {
	nyquist := s.Nyquist()

	for i := len(s.Db) / 2; i < len(s.Db)-brickWallWindow; i++ {
		before := s.Db[i]
		after := s.Db[i+brickWallWindow]

		if before-after > brickWallDropDb && before > brickWallLevelDb {
			cutoff := (float64(i) + float64(brickWallWindow)/2) * s.BinHz
			if cutoff < nyquist*0.98 {
				return cutoff, true
			}
		}
	}

	return 0, false
}
