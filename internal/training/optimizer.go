package training

import (
	"math"

	"github.com/example/harmonics-go/internal/tensor"
)

const adamBeta1 = 0.9
const adamBeta2 = 0.999
const adamEps = 1e-8

// moments is the pair of optimiser-state tensors parallel to one
// parameter tensor: opt1/opt2 in the spec's terms (SGD uses neither,
// RMSProp uses opt1 only, Adam/AdamW/LAMB use both).
type moments struct {
	opt1 tensor.Tensor
	opt2 tensor.Tensor
}

// applyUpdate mutates params in place given the (already averaged,
// clipped) gradient accum, the optimiser step t (1-based), and the
// options in force. It is a no-op for empty tensors. When opt is SGD and
// the dtype pair is (u8 params, i32 grad), the integer SGD law applies
// using lrShift instead of lr; any other dtype pairing under SGD with
// non-floating params is silently skipped, per the reference's documented
// behaviour for a dtype mismatch on that branch.
func applyUpdate(opt Optimizer, params tensor.Tensor, grad tensor.Tensor, m *moments, t int, lr float64, lrShift int, weightDecay float64) error {
	if params.IsEmpty() || grad.IsEmpty() {
		return nil
	}

	if opt == SGD && params.DType() == tensor.U8 && grad.DType() == tensor.I32 {
		return applyIntegerSGD(params, grad, lrShift)
	}

	if !params.DType().Float() {
		return nil
	}

	switch opt {
	case SGD:
		return applySGD(params, grad, lr)
	case RMSProp:
		return applyRMSProp(params, grad, m, lr)
	case Adam:
		return applyAdam(params, grad, m, t, lr, 0, false)
	case AdamW:
		return applyAdam(params, grad, m, t, lr, weightDecay, false)
	case LAMB:
		return applyAdam(params, grad, m, t, lr, weightDecay, true)
	default:
		return applySGD(params, grad, lr)
	}
}

func applyIntegerSGD(params, grad tensor.Tensor, lrShift int) error {
	p, g := params.U8(), grad.I32()
	for i := range p {
		updated := int32(int8(p[i])) - (g[i] >> uint(lrShift))
		if updated > 127 {
			updated = 127
		}
		if updated < -128 {
			updated = -128
		}
		p[i] = uint8(int8(updated))
	}
	return nil
}

func applySGD(params, grad tensor.Tensor, lr float64) error {
	switch params.DType() {
	case tensor.F32:
		p, g := params.F32(), grad.F32()
		for i := range p {
			p[i] -= float32(lr) * g[i]
		}
	case tensor.F64:
		p, g := params.F64(), grad.F64()
		for i := range p {
			p[i] -= lr * g[i]
		}
	}
	return nil
}

func applyRMSProp(params, grad tensor.Tensor, m *moments, lr float64) error {
	ensureMoment(&m.opt1, params)

	switch params.DType() {
	case tensor.F32:
		p, g, s := params.F32(), grad.F32(), m.opt1.F32()
		for i := range p {
			s[i] = 0.9*s[i] + 0.1*g[i]*g[i]
			p[i] -= float32(lr) * g[i] / (float32(math.Sqrt(float64(s[i]))) + adamEps)
		}
	case tensor.F64:
		p, g, s := params.F64(), grad.F64(), m.opt1.F64()
		for i := range p {
			s[i] = 0.9*s[i] + 0.1*g[i]*g[i]
			p[i] -= lr * g[i] / (math.Sqrt(s[i]) + adamEps)
		}
	}
	return nil
}

// applyAdam implements Adam/AdamW/LAMB, which share moment updates and
// differ only in whether weight decay is folded into the update and
// whether a per-tensor trust ratio scales the final step (LAMB).
func applyAdam(params, grad tensor.Tensor, m *moments, t int, lr, weightDecay float64, lamb bool) error {
	ensureMoment(&m.opt1, params)
	ensureMoment(&m.opt2, params)

	bc1 := 1 - math.Pow(adamBeta1, float64(t))
	bc2 := 1 - math.Pow(adamBeta2, float64(t))

	switch params.DType() {
	case tensor.F32:
		p, g, mm, v := params.F32(), grad.F32(), m.opt1.F32(), m.opt2.F32()
		u := make([]float32, len(p))
		for i := range p {
			mm[i] = float32(adamBeta1)*mm[i] + float32(1-adamBeta1)*g[i]
			v[i] = float32(adamBeta2)*v[i] + float32(1-adamBeta2)*g[i]*g[i]
			mHat := float64(mm[i]) / bc1
			vHat := float64(v[i]) / bc2
			step := mHat/(math.Sqrt(vHat)+adamEps) + weightDecay*float64(p[i])
			u[i] = float32(step)
		}
		applyLambOrPlain(p, u, lr, lamb)
	case tensor.F64:
		p, g, mm, v := params.F64(), grad.F64(), m.opt1.F64(), m.opt2.F64()
		u := make([]float64, len(p))
		for i := range p {
			mm[i] = adamBeta1*mm[i] + (1-adamBeta1)*g[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g[i]*g[i]
			mHat := mm[i] / bc1
			vHat := v[i] / bc2
			u[i] = mHat/(math.Sqrt(vHat)+adamEps) + weightDecay*p[i]
		}
		applyLambOrPlainF64(p, u, lr, lamb)
	}
	return nil
}

func applyLambOrPlain(p, u []float32, lr float64, lamb bool) {
	trust := 1.0
	if lamb {
		trust = trustRatio32(p, u)
	}
	for i := range p {
		p[i] -= float32(lr*trust) * u[i]
	}
}

func applyLambOrPlainF64(p, u []float64, lr float64, lamb bool) {
	trust := 1.0
	if lamb {
		trust = trustRatio64(p, u)
	}
	for i := range p {
		p[i] -= lr * trust * u[i]
	}
}

func trustRatio32(p, u []float32) float64 {
	var pNorm, uNorm float64
	for i := range p {
		pNorm += float64(p[i]) * float64(p[i])
		uNorm += float64(u[i]) * float64(u[i])
	}
	pNorm, uNorm = math.Sqrt(pNorm), math.Sqrt(uNorm)
	if pNorm == 0 || uNorm == 0 {
		return 1
	}
	return pNorm / uNorm
}

func trustRatio64(p, u []float64) float64 {
	var pNorm, uNorm float64
	for i := range p {
		pNorm += p[i] * p[i]
		uNorm += u[i] * u[i]
	}
	pNorm, uNorm = math.Sqrt(pNorm), math.Sqrt(uNorm)
	if pNorm == 0 || uNorm == 0 {
		return 1
	}
	return pNorm / uNorm
}

// ensureMoment allocates *m as a zeroed tensor shaped like like if it is
// still empty, so optimiser state only materialises for layers that
// actually receive a gradient.
func ensureMoment(m *tensor.Tensor, like tensor.Tensor) {
	if !m.IsEmpty() {
		return
	}
	z, err := tensor.Zeros(like.DType(), like.Shape())
	if err != nil {
		return
	}
	*m = z
}
