package ml

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"accident-analytics/models"
)

// Threshold is the probability above which a sample is predicted high severity.
const Threshold = 0.5

// LogisticRegression fits an L2-regularised binary logistic model with
// L-BFGS. C is the inverse regularisation strength; the intercept is not
// penalised.
type LogisticRegression struct {
	MaxIter int
	C       float64
}

// Model is a fitted classifier. It is not modified after Fit returns.
type Model struct {
	Features   []string    `json:"features"`
	Coef       []float64   `json:"coef"`
	Intercept  float64     `json:"intercept"`
	Vocabulary *Vocabulary `json:"vocabulary,omitempty"`
	Converged  bool        `json:"converged"`
	Iterations int         `json:"iterations"`
	Status     string      `json:"status"`
}

// Fit estimates the coefficients. When the optimizer stops early the model
// is still returned, together with a *models.ConvergenceWarning.
func (lr LogisticRegression) Fit(d *Dataset) (*Model, error) {
	if d.Rows() == 0 {
		return nil, errors.New("logistic: empty training set")
	}
	if lr.C <= 0 {
		return nil, fmt.Errorf("logistic: regularisation C must be positive, got %g", lr.C)
	}

	n, p := d.X.Dims()
	y := make([]float64, n)
	for i, v := range d.Y {
		y[i] = float64(v)
	}
	obj := &logLoss{x: d.X, y: y, c: lr.C, z: mat.NewVecDense(n, nil), r: mat.NewVecDense(n, nil)}

	problem := optimize.Problem{Func: obj.value, Grad: obj.gradient}
	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIter,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, p+1), settings, &optimize.LBFGS{})
	if result == nil || !finite(result.X) {
		if err == nil {
			err = errors.New("non-finite parameters")
		}
		return nil, fmt.Errorf("logistic: %w", err)
	}

	m := &Model{
		Features:   slices.Clone(d.Features),
		Coef:       slices.Clone(result.X[:p]),
		Intercept:  result.X[p],
		Iterations: result.Stats.MajorIterations,
		Status:     result.Status.String(),
		Converged:  err == nil && converged(result.Status),
	}
	if !m.Converged {
		return m, &models.ConvergenceWarning{Iterations: m.Iterations, Status: m.Status, Err: err}
	}
	return m, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// logLoss is the mean penalised negative log-likelihood. The last element of
// the parameter vector is the intercept.
type logLoss struct {
	x *mat.Dense
	y []float64
	c float64
	z *mat.VecDense
	r *mat.VecDense
}

func (l *logLoss) linear(params []float64) {
	p := len(params) - 1
	l.z.MulVec(l.x, mat.NewVecDense(p, params[:p]))
	for i := range l.y {
		l.z.SetVec(i, l.z.AtVec(i)+params[p])
	}
}

func (l *logLoss) value(params []float64) float64 {
	l.linear(params)
	p := len(params) - 1
	var loss float64
	for i, yi := range l.y {
		z := l.z.AtVec(i)
		loss += softplus(z) - yi*z
	}
	w := params[:p]
	loss += floats.Dot(w, w) / (2 * l.c)
	return loss / float64(len(l.y))
}

func (l *logLoss) gradient(grad, params []float64) {
	l.linear(params)
	p := len(params) - 1
	n := float64(len(l.y))
	var sum float64
	for i, yi := range l.y {
		res := sigmoid(l.z.AtVec(i)) - yi
		l.r.SetVec(i, res)
		sum += res
	}
	g := mat.NewVecDense(p, grad[:p])
	g.MulVec(l.x.T(), l.r)
	floats.AddScaled(grad[:p], 1/l.c, params[:p])
	floats.Scale(1/n, grad[:p])
	grad[p] = sum / n
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// PredictProba returns the probability of the high severity class per row.
func (m *Model) PredictProba(d *Dataset) ([]float64, error) {
	if !slices.Equal(m.Features, d.Features) {
		return nil, &models.EncodingMismatchError{Expected: slices.Clone(m.Features), Got: slices.Clone(d.Features)}
	}
	out := make([]float64, d.Rows())
	if d.Rows() == 0 {
		return out, nil
	}
	z := mat.NewVecDense(d.Rows(), nil)
	z.MulVec(d.X, mat.NewVecDense(len(m.Coef), m.Coef))
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.Intercept)
	}
	return out, nil
}

// Predict applies Threshold to PredictProba.
func (m *Model) Predict(d *Dataset) ([]int, error) {
	probs, err := m.PredictProba(d)
	if err != nil {
		return nil, err
	}
	return Classify(probs), nil
}

// Classify applies Threshold to each probability.
func Classify(probs []float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > Threshold {
			out[i] = 1
		}
	}
	return out
}
