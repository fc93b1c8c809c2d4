package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is a fitted multinomial logistic regression.
// Weights is indexed [class][feature].
type LogisticRegression struct {
	Classes    []string
	Weights    [][]float64
	Intercepts []float64
}

// Report describes how an optimisation run ended.
type Report struct {
	Examples   int
	Features   int
	Classes    int
	Iterations int
	Loss       float64
	Status     string
	// Warning is set when the optimiser stopped on an error but still
	// produced a usable location.
	Warning string
}

// fitLogistic minimises C*sum(-log p(y|x)) + 0.5*||W||^2 with L-BFGS from a
// zero start. Intercepts are not penalised.
func fitLogistic(xs []SparseVector, ys []int, classes []string, features int, c float64, maxIter int) (*LogisticRegression, Report, error) {
	k := len(classes)
	stride := features + 1
	rep := Report{Examples: len(xs), Features: features, Classes: k}
	if len(xs) != len(ys) {
		return nil, rep, fmt.Errorf("got %d vectors and %d labels", len(xs), len(ys))
	}
	if k == 0 {
		return nil, rep, errors.New("no classes")
	}

	lr := &LogisticRegression{
		Classes:    append([]string(nil), classes...),
		Weights:    make([][]float64, k),
		Intercepts: make([]float64, k),
	}
	if k == 1 {
		for i := range lr.Weights {
			lr.Weights[i] = make([]float64, features)
		}
		rep.Status = "SingleClass"
		return lr, rep, nil
	}

	scores := make([]float64, k)
	eval := func(params []float64, grad []float64) float64 {
		if grad != nil {
			for i := range grad {
				grad[i] = 0
			}
		}
		var loss float64
		for i, x := range xs {
			for cls := 0; cls < k; cls++ {
				row := params[cls*stride : (cls+1)*stride]
				s := row[features]
				for j, idx := range x.Indices {
					s += row[idx] * x.Values[j]
				}
				scores[cls] = s
			}
			lse := floats.LogSumExp(scores)
			loss += c * (lse - scores[ys[i]])
			if grad == nil {
				continue
			}
			for cls := 0; cls < k; cls++ {
				d := math.Exp(scores[cls] - lse)
				if cls == ys[i] {
					d--
				}
				d *= c
				g := grad[cls*stride : (cls+1)*stride]
				for j, idx := range x.Indices {
					g[idx] += d * x.Values[j]
				}
				g[features] += d
			}
		}
		for cls := 0; cls < k; cls++ {
			w := params[cls*stride : cls*stride+features]
			loss += 0.5 * floats.Dot(w, w)
			if grad != nil {
				floats.Add(grad[cls*stride:cls*stride+features], w)
			}
		}
		return loss
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return eval(x, nil) },
		Grad: func(grad, x []float64) { eval(x, grad) },
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-4,
		MajorIterations:   maxIter,
	}
	res, err := optimize.Minimize(problem, make([]float64, k*stride), settings, &optimize.LBFGS{})
	if res == nil {
		return nil, rep, fmt.Errorf("minimize: %w", err)
	}
	if err != nil {
		rep.Warning = err.Error()
	}
	rep.Iterations = res.Stats.MajorIterations
	rep.Loss = res.F
	rep.Status = res.Status.String()

	for cls := 0; cls < k; cls++ {
		row := res.X[cls*stride : (cls+1)*stride]
		lr.Weights[cls] = append([]float64(nil), row[:features]...)
		lr.Intercepts[cls] = row[features]
	}
	return lr, rep, nil
}

// Probabilities returns the softmax over classes for x.
func (lr *LogisticRegression) Probabilities(x SparseVector) []float64 {
	scores := make([]float64, len(lr.Classes))
	for cls := range lr.Classes {
		s := lr.Intercepts[cls]
		w := lr.Weights[cls]
		for j, idx := range x.Indices {
			if idx < len(w) {
				s += w[idx] * x.Values[j]
			}
		}
		scores[cls] = s
	}
	lse := floats.LogSumExp(scores)
	for i := range scores {
		scores[i] = math.Exp(scores[i] - lse)
	}
	return scores
}

// Predict returns the index of the most probable class; ties go to the lower
// index.
func (lr *LogisticRegression) Predict(x SparseVector) (int, []float64) {
	probs := lr.Probabilities(x)
	return floats.MaxIdx(probs), probs
}
