package evolve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/baldhumanity/blockevo/evolve/nn"
	"github.com/baldhumanity/blockevo/puzzle"
)

func shapeByName(t *testing.T, name string) puzzle.Shape {
	t.Helper()
	for _, s := range puzzle.Catalog {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("no shape %q in catalog", name)
	return puzzle.Shape{}
}

func testNetwork(t *testing.T, seed int64) *nn.Network {
	t.Helper()
	net, err := nn.New(rand.New(rand.NewSource(seed)), []int{NumInputs, 8, NumOutputs})
	require.NoError(t, err)
	return net
}

func TestEncode_Layout(t *testing.T) {
	var b puzzle.Board
	b[0][0] = puzzle.Occupied
	b[7][7] = puzzle.RecentlyPlaced
	h := puzzle.Hand{shapeByName(t, "mono"), shapeByName(t, "square3"), shapeByName(t, "bar5")}

	in := Encode(&b, h)
	require.Len(t, in, NumInputs)

	assert.Equal(t, 1.0, in[0])
	assert.Equal(t, 1.0, in[63], "recently placed cells count as filled")
	assert.Equal(t, 2.0, floats.Sum(in[:64]))

	// mono fits everywhere except the two filled cells
	assert.Equal(t, 62.0, floats.Sum(in[64:128]))
	assert.Equal(t, 0.0, in[64])
	// square3 anchored at (0,0) and (5,5) overlap the filled corners
	assert.Equal(t, 34.0, floats.Sum(in[128:192]))
	assert.Equal(t, 0.0, in[128])
	assert.Equal(t, 1.0, in[128+1])
	// bar5 has 4 anchors per row; row 0 loses col 0 and row 7 loses col 3
	assert.Equal(t, 4.0*8-1-1, floats.Sum(in[192:256]))
}

func TestEncode_MissingSlotsAreZero(t *testing.T) {
	var b puzzle.Board
	in := Encode(&b, puzzle.Hand{shapeByName(t, "mono")})
	assert.Equal(t, 0.0, floats.Sum(in[:64]))
	assert.Equal(t, 64.0, floats.Sum(in[64:128]))
	assert.Equal(t, 0.0, floats.Sum(in[128:]))

	in = Encode(&b, puzzle.Hand{puzzle.Shape{}})
	assert.Equal(t, 0.0, floats.Sum(in))

	in = Encode(&b, nil)
	assert.Equal(t, 0.0, floats.Sum(in))
}

// almostFull leaves a single empty cell at (row, col).
func almostFull(row, col int) puzzle.Board {
	var b puzzle.Board
	for r := range b {
		for c := range b[r] {
			b[r][c] = puzzle.Occupied
		}
	}
	b[row][col] = puzzle.Empty
	return b
}

func TestDecide_UniqueLegalPlacement(t *testing.T) {
	b := almostFull(4, 3)
	h := puzzle.Hand{shapeByName(t, "square3"), shapeByName(t, "bar5"), shapeByName(t, "mono")}
	for seed := int64(1); seed <= 10; seed++ {
		p := NewPlayer(1, testNetwork(t, seed))
		a, ok := p.Decide(&b, h)
		require.True(t, ok)
		assert.Equal(t, puzzle.Action{Block: 2, Row: 4, Col: 3}, a, "seed %d", seed)
	}
}

func TestDecide_NoLegalPlacement(t *testing.T) {
	var b puzzle.Board
	for r := range b {
		for c := range b[r] {
			b[r][c] = puzzle.Occupied
		}
	}
	p := NewPlayer(1, testNetwork(t, 3))
	_, ok := p.Decide(&b, puzzle.Hand{shapeByName(t, "mono")})
	assert.False(t, ok)
}

func TestDecide_AlwaysLegal(t *testing.T) {
	p := NewPlayer(1, testNetwork(t, 5))
	g := puzzle.NewGame(rand.New(rand.NewSource(5)))
	for i := 0; i < 200 && !g.Over(); i++ {
		b, h := g.Board(), g.Hand()
		a, ok := p.Decide(&b, h)
		if !ok {
			break
		}
		require.True(t, b.CanPlace(h[a.Block], a.Row, a.Col))
		_, err := g.Place(a.Block, a.Row, a.Col)
		require.NoError(t, err)
	}
}

func TestPickAction_TieBreak(t *testing.T) {
	var b puzzle.Board
	h := puzzle.Hand{shapeByName(t, "mono"), shapeByName(t, "mono")}

	a, ok := pickAction(&b, h, make([]float64, NumOutputs))
	require.True(t, ok)
	assert.Equal(t, puzzle.Action{Block: 0, Row: 0, Col: 0}, a, "all equal picks the first")

	out := make([]float64, NumOutputs)
	out[boardCells+2*puzzle.Size+5] = 3 // slot 1, (2,5)
	out[10] = 3                         // slot 0, (1,2)
	a, ok = pickAction(&b, h, out)
	require.True(t, ok)
	assert.Equal(t, puzzle.Action{Block: 0, Row: 1, Col: 2}, a)
}

func TestPickAction_SkipsIllegalAndPadding(t *testing.T) {
	var b puzzle.Board
	b[0][0] = puzzle.Occupied
	h := puzzle.Hand{shapeByName(t, "mono")}

	out := make([]float64, NumOutputs)
	for i := range out {
		out[i] = -1
	}
	out[0] = 100             // (0,0) is occupied
	out[boardCells+9] = 1000 // slot 1 does not exist
	out[2*boardCells] = 1000 // slot 2 does not exist
	out[63] = 5
	out[20] = 4

	a, ok := pickAction(&b, h, out)
	require.True(t, ok)
	assert.Equal(t, puzzle.Action{Block: 0, Row: 7, Col: 7}, a)
}

func TestPlayerFitness(t *testing.T) {
	p := NewPlayer(7, testNetwork(t, 1))
	p.AddScore(8)
	p.AddScore(30)
	assert.Equal(t, 38.0, p.Fitness)
	p.SetFitness(40)
	p.Terminal = true
	assert.Contains(t, p.String(), "Key: 7")
	p.Reset()
	assert.Equal(t, 0.0, p.Fitness)
	assert.False(t, p.Terminal)
}
