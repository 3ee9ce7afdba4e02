package gpu

// CubeVertices are the corners of the [-1,1]^3 domain cube. Bit 2 of the
// index selects +x, bit 1 +y and bit 0 +z.
var CubeVertices = [8][3]float32{
	{-1, -1, -1},
	{-1, -1, 1},
	{-1, 1, -1},
	{-1, 1, 1},
	{1, -1, -1},
	{1, -1, 1},
	{1, 1, -1},
	{1, 1, 1},
}

// CubeIndices triangulate the six cube faces, counter-clockwise when
// viewed from outside.
var CubeIndices = [36]uint16{
	7, 3, 1, 1, 5, 7, // +z
	0, 2, 6, 6, 4, 0, // -z
	6, 2, 3, 3, 7, 6, // +y
	1, 0, 4, 4, 5, 1, // -y
	3, 2, 0, 0, 1, 3, // -x
	4, 6, 7, 7, 5, 4, // +x
}

// QuadVertices is a full-viewport triangle strip.
var QuadVertices = [4][2]float32{
	{-1, -1},
	{1, -1},
	{-1, 1},
	{1, 1},
}
