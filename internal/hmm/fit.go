package hmm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// ErrTooFewObservations is returned when the training set cannot
// support the requested model size.
var ErrTooFewObservations = errors.New("too few observations")

// FitConfig controls one EM fit.
type FitConfig struct {
	States        int
	MaxIterations int
	Tolerance     float64
	Restarts      int
	Seed          int64
}

// Candidate records one state count tried during BIC selection.
type Candidate struct {
	States        int     `json:"states"`
	LogLikelihood float64 `json:"log_likelihood"`
	BIC           float64 `json:"bic"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	Chosen        bool    `json:"chosen"`
}

// minRowsPerParameter is the required ratio of training rows to
// states × features; thinner data overfits EM badly.
const minRowsPerParameter = 10

// Fit runs Baum-Welch EM with seeded restarts and returns the model
// with the best final log-likelihood, states relabeled in ascending
// volatility order.
func Fit(observations [][]float64, features []string, cfg FitConfig) (*Model, error) {
	if err := validateFitInputs(observations, features, cfg); err != nil {
		return nil, err
	}

	var best *Model
	for restart := 0; restart < cfg.Restarts; restart++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(restart)))
		model := randomInit(observations, features, cfg.States, rng)
		iterations, converged := expectationMaximization(model, observations, cfg)
		model.Iterations = iterations
		model.Converged = converged

		slog.Debug("EM restart finished",
			"restart", restart,
			"states", cfg.States,
			"log_likelihood", model.LogLikelihood,
			"iterations", iterations,
			"converged", converged)

		if best == nil || model.LogLikelihood > best.LogLikelihood {
			best = model
		}
	}

	best.Seed = cfg.Seed
	best.TrainRows = len(observations)
	best.BIC = bic(best.LogLikelihood, cfg.States, len(features), len(observations))
	relabelByVolatility(best)
	if err := best.Validate(); err != nil {
		return nil, fmt.Errorf("fit produced an invalid model: %w", err)
	}
	return best, nil
}

// Select fits every state count in [minStates, maxStates] and keeps
// the model with the lowest BIC.
func Select(observations [][]float64, features []string, minStates, maxStates int, cfg FitConfig) (*Model, []Candidate, error) {
	if minStates < 2 || maxStates < minStates {
		return nil, nil, fmt.Errorf("invalid state range [%d, %d]", minStates, maxStates)
	}

	var best *Model
	candidates := make([]Candidate, 0, maxStates-minStates+1)
	for states := minStates; states <= maxStates; states++ {
		stateCfg := cfg
		stateCfg.States = states
		model, err := Fit(observations, features, stateCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("fitting %d states: %w", states, err)
		}
		candidates = append(candidates, Candidate{
			States:        states,
			LogLikelihood: model.LogLikelihood,
			BIC:           model.BIC,
			Iterations:    model.Iterations,
			Converged:     model.Converged,
		})
		slog.Info("state count candidate",
			"states", states,
			"log_likelihood", model.LogLikelihood,
			"bic", model.BIC)

		if best == nil || model.BIC < best.BIC {
			best = model
		}
	}

	for i := range candidates {
		candidates[i].Chosen = candidates[i].States == best.States
	}
	return best, candidates, nil
}

func validateFitInputs(observations [][]float64, features []string, cfg FitConfig) error {
	if cfg.States < 2 {
		return fmt.Errorf("need at least 2 states, got %d", cfg.States)
	}
	if len(features) == 0 {
		return fmt.Errorf("no features given")
	}
	if cfg.MaxIterations < 1 || cfg.Restarts < 1 || cfg.Tolerance <= 0 {
		return fmt.Errorf("invalid fit config: max_iterations=%d restarts=%d tolerance=%v",
			cfg.MaxIterations, cfg.Restarts, cfg.Tolerance)
	}

	minRows := minRowsPerParameter * cfg.States * len(features)
	if len(observations) < minRows {
		return fmt.Errorf("%w: %d training rows for %d states x %d features (need %d)",
			ErrTooFewObservations, len(observations), cfg.States, len(features), minRows)
	}
	for _, row := range observations {
		if len(row) != len(features) {
			return fmt.Errorf("observation width %d does not match %d features", len(row), len(features))
		}
	}
	return checkFinite(observations)
}

// randomInit seeds EM: means drawn from distinct observation rows,
// variances from the global per-feature variance, distributions near
// uniform with a little noise so restarts explore different basins.
func randomInit(observations [][]float64, features []string, states int, rng *rand.Rand) *Model {
	n := len(observations)
	d := len(features)

	globalVar := make([]float64, d)
	column := make([]float64, n)
	for f := 0; f < d; f++ {
		for t := 0; t < n; t++ {
			column[t] = observations[t][f]
		}
		globalVar[f] = math.Max(stat.Variance(column, nil), varianceFloor)
	}

	perm := rng.Perm(n)
	means := make([][]float64, states)
	variances := make([][]float64, states)
	for s := 0; s < states; s++ {
		means[s] = make([]float64, d)
		copy(means[s], observations[perm[s]])
		variances[s] = make([]float64, d)
		copy(variances[s], globalVar)
	}

	initial := noisyUniform(states, rng)
	transition := make([][]float64, states)
	for s := 0; s < states; s++ {
		transition[s] = noisyUniform(states, rng)
	}

	return &Model{
		SchemaVersion: SchemaVersion,
		States:        states,
		Features:      append([]string(nil), features...),
		Initial:       initial,
		Transition:    transition,
		Means:         means,
		Variances:     variances,
		LogLikelihood: math.Inf(-1),
	}
}

func noisyUniform(n int, rng *rand.Rand) []float64 {
	p := make([]float64, n)
	sum := 0.0
	for i := range p {
		p[i] = 1 + rng.Float64()*0.1
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

// expectationMaximization iterates E and M steps until the
// log-likelihood improvement drops below tolerance. It returns the
// iteration count and whether the fit converged.
func expectationMaximization(model *Model, observations [][]float64, cfg FitConfig) (int, bool) {
	previous := math.Inf(-1)
	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		logLikelihood := emStep(model, observations)
		model.LogLikelihood = logLikelihood

		if iteration > 1 {
			improvement := logLikelihood - previous
			if improvement < 0 && math.Abs(improvement) > cfg.Tolerance {
				// EM guarantees monotonicity; a real drop means
				// numerical trouble, keep the previous optimum.
				slog.Warn("log-likelihood decreased, stopping EM",
					"iteration", iteration, "drop", improvement)
				model.LogLikelihood = previous
				return iteration, false
			}
			if math.Abs(improvement) < cfg.Tolerance {
				return iteration, true
			}
		}
		previous = logLikelihood
	}
	return cfg.MaxIterations, false
}

// emStep runs one scaled forward/backward pass and updates the model
// parameters in place. Returns the log-likelihood under the parameters
// the pass started with.
func emStep(model *Model, observations [][]float64) float64 {
	n := len(observations)
	k := model.States
	d := len(model.Features)

	// Emission probabilities, per-row max-shifted so exp cannot
	// underflow to an all-zero row.
	scaledEmissions := make([][]float64, n)
	rowShift := make([]float64, n)
	for t := 0; t < n; t++ {
		logRow := make([]float64, k)
		maxLog := math.Inf(-1)
		for s := 0; s < k; s++ {
			logRow[s] = model.logEmission(s, observations[t])
			if logRow[s] > maxLog {
				maxLog = logRow[s]
			}
		}
		rowShift[t] = maxLog
		scaled := make([]float64, k)
		for s := 0; s < k; s++ {
			scaled[s] = math.Exp(logRow[s] - maxLog)
		}
		scaledEmissions[t] = scaled
	}

	// Scaled forward pass.
	alpha := make([][]float64, n)
	scale := make([]float64, n)
	alpha[0] = make([]float64, k)
	for s := 0; s < k; s++ {
		alpha[0][s] = model.Initial[s] * scaledEmissions[0][s]
		scale[0] += alpha[0][s]
	}
	normalize(alpha[0], scale[0])
	for t := 1; t < n; t++ {
		alpha[t] = make([]float64, k)
		for s := 0; s < k; s++ {
			sum := 0.0
			for r := 0; r < k; r++ {
				sum += alpha[t-1][r] * model.Transition[r][s]
			}
			alpha[t][s] = sum * scaledEmissions[t][s]
			scale[t] += alpha[t][s]
		}
		normalize(alpha[t], scale[t])
	}

	logLikelihood := 0.0
	for t := 0; t < n; t++ {
		logLikelihood += math.Log(scale[t]) + rowShift[t]
	}

	// Scaled backward pass, reusing the forward scale factors.
	beta := make([][]float64, n)
	beta[n-1] = make([]float64, k)
	for s := 0; s < k; s++ {
		beta[n-1][s] = 1
	}
	for t := n - 2; t >= 0; t-- {
		beta[t] = make([]float64, k)
		for s := 0; s < k; s++ {
			sum := 0.0
			for r := 0; r < k; r++ {
				sum += model.Transition[s][r] * scaledEmissions[t+1][r] * beta[t+1][r]
			}
			beta[t][s] = sum
		}
		normalize(beta[t], scale[t+1])
	}

	// State and transition posteriors.
	gamma := make([][]float64, n)
	for t := 0; t < n; t++ {
		gamma[t] = make([]float64, k)
		total := 0.0
		for s := 0; s < k; s++ {
			gamma[t][s] = alpha[t][s] * beta[t][s]
			total += gamma[t][s]
		}
		normalize(gamma[t], total)
	}

	xiSum := make([][]float64, k)
	for s := range xiSum {
		xiSum[s] = make([]float64, k)
	}
	for t := 0; t < n-1; t++ {
		total := 0.0
		local := make([][]float64, k)
		for s := 0; s < k; s++ {
			local[s] = make([]float64, k)
			for r := 0; r < k; r++ {
				v := alpha[t][s] * model.Transition[s][r] * scaledEmissions[t+1][r] * beta[t+1][r]
				local[s][r] = v
				total += v
			}
		}
		if total <= 0 {
			continue
		}
		for s := 0; s < k; s++ {
			for r := 0; r < k; r++ {
				xiSum[s][r] += local[s][r] / total
			}
		}
	}

	// M step.
	copy(model.Initial, gamma[0])

	for s := 0; s < k; s++ {
		occupancy := 0.0
		for t := 0; t < n-1; t++ {
			occupancy += gamma[t][s]
		}
		if occupancy <= 0 {
			continue // starved state keeps its parameters
		}
		rowSum := 0.0
		for r := 0; r < k; r++ {
			model.Transition[s][r] = xiSum[s][r] / occupancy
			rowSum += model.Transition[s][r]
		}
		normalize(model.Transition[s], rowSum)
	}

	for s := 0; s < k; s++ {
		weight := 0.0
		for t := 0; t < n; t++ {
			weight += gamma[t][s]
		}
		if weight <= 0 {
			continue
		}
		for f := 0; f < d; f++ {
			mean := 0.0
			for t := 0; t < n; t++ {
				mean += gamma[t][s] * observations[t][f]
			}
			mean /= weight

			variance := 0.0
			for t := 0; t < n; t++ {
				diff := observations[t][f] - mean
				variance += gamma[t][s] * diff * diff
			}
			variance /= weight

			model.Means[s][f] = mean
			model.Variances[s][f] = math.Max(variance, varianceFloor)
		}
	}

	return logLikelihood
}

// logEmission is the joint log-density of one observation under a
// state's diagonal Gaussian.
func (m *Model) logEmission(state int, row []float64) float64 {
	sum := 0.0
	for f, x := range row {
		normal := distuv.Normal{Mu: m.Means[state][f], Sigma: math.Sqrt(m.Variances[state][f])}
		sum += normal.LogProb(x)
	}
	return sum
}

func normalize(p []float64, sum float64) {
	if sum <= 0 {
		uniform := 1.0 / float64(len(p))
		for i := range p {
			p[i] = uniform
		}
		return
	}
	for i := range p {
		p[i] /= sum
	}
}

// bic scores a fitted model: -2 logL + p ln n with p the free
// parameter count (transition rows, initial distribution, means and
// diagonal covariances).
func bic(logLikelihood float64, states, features, rows int) float64 {
	p := states*(states-1) + (states - 1) + 2*states*features
	return -2*logLikelihood + float64(p)*math.Log(float64(rows))
}

// relabelByVolatility permutes states so volatility means ascend:
// state 0 is the calmest regime on every run.
func relabelByVolatility(model *Model) {
	volIdx := 0
	for f, name := range model.Features {
		if name == dataset.ColVolatility {
			volIdx = f
			break
		}
	}

	order := make([]int, model.States)
	for s := range order {
		order[s] = s
	}
	sort.SliceStable(order, func(a, b int) bool {
		return model.Means[order[a]][volIdx] < model.Means[order[b]][volIdx]
	})

	initial := make([]float64, model.States)
	transition := make([][]float64, model.States)
	means := make([][]float64, model.States)
	variances := make([][]float64, model.States)
	for newState, oldState := range order {
		initial[newState] = model.Initial[oldState]
		means[newState] = model.Means[oldState]
		variances[newState] = model.Variances[oldState]
		transition[newState] = make([]float64, model.States)
		for newNext, oldNext := range order {
			transition[newState][newNext] = model.Transition[oldState][oldNext]
		}
	}
	model.Initial = initial
	model.Transition = transition
	model.Means = means
	model.Variances = variances
}
