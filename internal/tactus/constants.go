package tactus

const (
	// Family scoring. A tempo hypothesis is supported by spectral energy at
	// half and double its rate, weighted below the hypothesis itself.
	familyOctaveWeight = 0.30

	// Tempi this close together count as the same hypothesis family.
	groupBandBPM = 3.0

	// Runner-up search excludes this neighborhood around the density peak
	// so the peak's own shoulders do not masquerade as competition.
	minSeparationBPM = 10.0

	// Evidence density accumulator
	densityDecay = 0.995
	kernelRadius = 2

	// Confidence decay applied per cycle while the input is silent.
	silentConfidenceDecay = 0.95
)

// kernelWeights spreads a candidate's score across neighboring bins,
// indexed by distance from the center bin.
var kernelWeights = [kernelRadius + 1]float64{1.0, 0.5, 0.25}
