package photometric

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// normalSystem accumulates AᵀA and Aᵀb for one point's 3-unknown linear
// least-squares problem and solves it. It is reused across points by a single
// goroutine.
type normalSystem struct {
	ata [3][3]float64
	atb [3]float64

	sym  *mat.SymDense
	rhs  *mat.VecDense
	x    *mat.VecDense
	chol mat.Cholesky
}

func newNormalSystem() *normalSystem {
	return &normalSystem{
		sym: mat.NewSymDense(3, nil),
		rhs: mat.NewVecDense(3, nil),
		x:   mat.NewVecDense(3, nil),
	}
}

func (s *normalSystem) reset() {
	s.ata = [3][3]float64{}
	s.atb = [3]float64{}
}

// add accumulates one equation g·x = o.
func (s *normalSystem) add(g r3.Vector, o float64) {
	v := [3]float64{g.X, g.Y, g.Z}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			s.ata[i][j] += v[i] * v[j]
		}
		s.atb[i] += v[i] * o
	}
}

// solve returns the least-squares solution. With regularize set, or when the
// plain system is not positive definite or too ill-conditioned, the diagonal
// is raised by reg first. A system that cannot be solved even then yields the
// zero vector.
func (s *normalSystem) solve(reg float64, regularize bool) r3.Vector {
	for i := 0; i < 3; i++ {
		s.rhs.SetVec(i, s.atb[i])
	}
	if !regularize {
		if x, ok := s.factorizeAndSolve(0, false); ok {
			return x
		}
	}
	if x, ok := s.factorizeAndSolve(reg, true); ok {
		return x
	}
	return r3.Vector{}
}

func (s *normalSystem) factorizeAndSolve(diag float64, tolerateCondition bool) (r3.Vector, bool) {
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			v := s.ata[i][j]
			if i == j {
				v += diag
			}
			s.sym.SetSym(i, j, v)
		}
	}
	if !s.chol.Factorize(s.sym) {
		return r3.Vector{}, false
	}
	if err := s.chol.SolveVecTo(s.x, s.rhs); err != nil {
		if _, ill := err.(mat.Condition); !ill || !tolerateCondition {
			return r3.Vector{}, false
		}
	}
	x := r3.Vector{X: s.x.AtVec(0), Y: s.x.AtVec(1), Z: s.x.AtVec(2)}
	if math.IsNaN(x.X+x.Y+x.Z) || math.IsInf(x.X+x.Y+x.Z, 0) {
		return r3.Vector{}, false
	}
	return x, true
}
