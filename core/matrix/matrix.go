// Package matrix provides the dense linear algebra used by the closed-form solvers.
//
// Matrices are [][]float64 in row-major order. Every function returns a newly
// allocated result and never mutates its arguments.
package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// Tolerance is the smallest pivot (or 2x2 determinant) magnitude accepted by Inverse.
const Tolerance = 1e-10

// shape returns rows and columns of M, or an error when M is ragged.
func shape(op string, M [][]float64) (int, int, error) {
	r := len(M)
	if r == 0 {
		return 0, 0, nil
	}
	c := len(M[0])
	for _, row := range M[1:] {
		if len(row) != c {
			return 0, 0, errors.NewDimensionError(op, c, len(row), 1)
		}
	}
	return r, c, nil
}

// Transpose returns the transpose of M.
func Transpose(M [][]float64) [][]float64 {
	if len(M) == 0 {
		return [][]float64{}
	}
	rows, cols := len(M), len(M[0])
	out := make([][]float64, cols)
	for j := range out {
		out[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = M[i][j]
		}
	}
	return out
}

// Multiply returns A·B. It fails with a DimensionError when the column count of A
// differs from the row count of B or when either operand is ragged.
func Multiply(A, B [][]float64) ([][]float64, error) {
	ar, ac, err := shape("matrix.Multiply", A)
	if err != nil {
		return nil, err
	}
	br, bc, err := shape("matrix.Multiply", B)
	if err != nil {
		return nil, err
	}
	if ac != br {
		return nil, errors.NewDimensionError("matrix.Multiply", ac, br, 0)
	}

	out := make([][]float64, ar)
	for i := 0; i < ar; i++ {
		out[i] = make([]float64, bc)
		for k := 0; k < ac; k++ {
			a := A[i][k]
			if a == 0 {
				continue
			}
			for j := 0; j < bc; j++ {
				out[i][j] += a * B[k][j]
			}
		}
	}
	return out, nil
}

// MatVec returns M·v.
func MatVec(M [][]float64, v []float64) ([]float64, error) {
	out := make([]float64, len(M))
	for i, row := range M {
		if len(row) != len(v) {
			return nil, errors.NewDimensionError("matrix.MatVec", len(row), len(v), 1)
		}
		out[i] = floats.Dot(row, v)
	}
	return out, nil
}

// Identity returns the n×n identity matrix.
func Identity(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	return out
}

// Inverse returns the inverse of the square matrix M.
//
// 2×2 matrices use the closed form. Larger (and 1×1) matrices are reduced with
// Gauss-Jordan elimination on [M | I] using partial pivoting. A SingularMatrixError
// is returned when the determinant or a pivot falls below Tolerance.
func Inverse(M [][]float64) ([][]float64, error) {
	n, c, err := shape("matrix.Inverse", M)
	if err != nil {
		return nil, err
	}
	if n != c {
		return nil, errors.NewDimensionError("matrix.Inverse", n, c, 1)
	}
	if n == 0 {
		return [][]float64{}, nil
	}
	if n == 2 {
		return inverse2x2(M)
	}
	return gaussJordan(M)
}

func inverse2x2(M [][]float64) ([][]float64, error) {
	a, b := M[0][0], M[0][1]
	c, d := M[1][0], M[1][1]
	det := a*d - b*c
	if math.Abs(det) < Tolerance {
		return nil, errors.NewSingularMatrixError("matrix.Inverse", det)
	}
	return [][]float64{
		{d / det, -b / det},
		{-c / det, a / det},
	}, nil
}

func gaussJordan(M [][]float64) ([][]float64, error) {
	n := len(M)

	// augmented [M | I]
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], M[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = r
			}
		}
		pivot := aug[pivotRow][col]
		if math.Abs(pivot) < Tolerance {
			return nil, errors.NewSingularMatrixError("matrix.Inverse", pivot)
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		floats.Scale(1/pivot, aug[col])
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			if f := aug[r][col]; f != 0 {
				floats.AddScaled(aug[r], -f, aug[col])
			}
		}
	}

	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = append([]float64(nil), aug[i][n:]...)
	}
	return inv, nil
}
