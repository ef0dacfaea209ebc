package gpu

import "github.com/chewxy/math32"

// Matrix is a 4x4 column-major float32 matrix, the layout hosts pass to
// custom layers and GL uniforms expect.
type Matrix [16]float32

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// MatrixFromFloat64 converts a double-precision host matrix.
func MatrixFromFloat64(m [16]float64) Matrix {
	var out Matrix
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Mul returns m × n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Project transforms the point (x, y, 0, 1) and returns normalized device
// coordinates after the perspective divide. ok is false when w is zero or
// not finite.
func (m Matrix) Project(x, y float32) (nx, ny float32, ok bool) {
	cx := m[0]*x + m[4]*y + m[12]
	cy := m[1]*x + m[5]*y + m[13]
	cw := m[3]*x + m[7]*y + m[15]
	if cw == 0 || math32.IsNaN(cw) || math32.IsInf(cw, 0) {
		return 0, 0, false
	}
	return cx / cw, cy / cw, true
}

// Finite reports whether every element is a finite number.
func (m Matrix) Finite() bool {
	for _, v := range m {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Ortho returns an orthographic projection mapping the box
// [left,right]×[bottom,top]×[near,far] to clip space.
func Ortho(left, right, bottom, top, near, far float32) Matrix {
	return Matrix{
		2 / (right - left), 0, 0, 0,
		0, 2 / (top - bottom), 0, 0,
		0, 0, -2 / (far - near), 0,
		-(right + left) / (right - left), -(top + bottom) / (top - bottom), -(far + near) / (far - near), 1,
	}
}
