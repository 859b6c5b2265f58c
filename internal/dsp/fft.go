package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Processor wraps a planned real FFT with a precomputed window. Plan once
// per (size, window), process many frames. Not safe for concurrent use;
// each worker owns its own Planner.
type Processor struct {
	size   int
	window []float64
	fft    *fourier.FFT
	frame  []float64
}

// NewProcessor plans an FFT of the given size with the given window.
func NewProcessor(size int, window Window) *Processor {
	return &Processor{
		size:   size,
		window: MakeWindow(size, window),
		fft:    fourier.NewFFT(size),
		frame:  make([]float64, size),
	}
}

// Size returns the FFT size.
func (p *Processor) Size() int {
	return p.size
}

// Bins returns the number of half-spectrum bins (size/2 + 1).
func (p *Processor) Bins() int {
	return p.size/2 + 1
}

// Coefficients windows the frame and returns the complex half-spectrum.
// The frame must be exactly Size() samples long.
func (p *Processor) Coefficients(frame []float64) []complex128 {
	for i := range p.size {
		p.frame[i] = frame[i] * p.window[i]
	}

	return p.fft.Coefficients(nil, p.frame)
}

// Magnitudes windows the frame and returns the magnitude half-spectrum.
func (p *Processor) Magnitudes(frame []float64) []float64 {
	coeffs := p.Coefficients(frame)
	mags := make([]float64, len(coeffs))

	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}

	return mags
}

// Planner caches processors per (size, window). Worker-local: plans are
// reused across files within one worker but never shared across goroutines.
type Planner struct {
	plans map[plannerKey]*Processor
}

type plannerKey struct {
	size   int
	window Window
}

// NewPlanner returns an empty plan cache.
func NewPlanner() *Planner {
	return &Planner{plans: make(map[plannerKey]*Processor)}
}

// Get returns a cached processor, planning one on first use.
func (pl *Planner) Get(size int, window Window) *Processor {
	key := plannerKey{size: size, window: window}
	if proc, ok := pl.plans[key]; ok {
		return proc
	}

	proc := NewProcessor(size, window)
	pl.plans[key] = proc

	return proc
}

const (
	dbFloor     = -120.0
	magEpsilon  = 1e-10
	maxAvgedWin = 100
)

// MagnitudeToDb converts a linear magnitude to dB, clamped to the -120 dB floor.
func MagnitudeToDb(mag float64) float64 {
	db := 20 * math.Log10(math.Max(mag, magEpsilon))
	if db < dbFloor {
		return dbFloor
	}

	return db
}

// ToDb converts a magnitude spectrum to dB in place-allocated copy.
func ToDb(magnitudes []float64) []float64 {
	decibels := make([]float64, len(magnitudes))
	for i, m := range magnitudes {
		decibels[i] = MagnitudeToDb(m)
	}

	return decibels
}
