package t2048

import (
	"testing"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

func settings4x4() protocol.Puzzle2048Settings {
	return protocol.Puzzle2048Settings{FieldWidth: 4, FieldHeight: 4, TargetValue: 2048}
}

func TestNewHasTwoTiles(t *testing.T) {
	g := New(settings4x4(), core.NewSessionRng(42))

	nonZero := 0
	for _, v := range g.Cells() {
		if v != 0 {
			nonZero++
		}
	}
	if nonZero != 2 {
		t.Errorf("tiles = %d, want 2", nonZero)
	}
}

func TestSlideAndMergeLine(t *testing.T) {
	tests := []struct {
		line  []int
		want  []int
		score int
	}{
		{[]int{2, 2, 0, 0}, []int{4, 0, 0, 0}, 4},
		{[]int{2, 4, 8, 16}, []int{2, 4, 8, 16}, 0},
		{[]int{2, 2, 4, 4}, []int{4, 8, 0, 0}, 12},
		{[]int{2, 2, 2, 0}, []int{4, 2, 0, 0}, 4},
		{[]int{0, 2, 0, 2}, []int{4, 0, 0, 0}, 4},
	}

	for _, tt := range tests {
		got, score := slideAndMergeLine(tt.line)
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("slideAndMergeLine(%v) = %v, want %v", tt.line, got, tt.want)
				break
			}
		}
		if score != tt.score {
			t.Errorf("slideAndMergeLine(%v) score = %d, want %d", tt.line, score, tt.score)
		}
	}
}

func TestMoveDirections(t *testing.T) {
	rng := core.NewSessionRng(42)

	g := New(settings4x4(), rng)
	g.SetCells([]int{
		2, 2, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	if !g.ApplyMove(core.DirLeft, rng) {
		t.Fatal("left move should change the board")
	}
	if g.Cells()[0] != 4 {
		t.Errorf("cell 0 = %d, want 4", g.Cells()[0])
	}

	g = New(settings4x4(), rng)
	g.SetCells([]int{
		0, 0, 2, 2,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	g.ApplyMove(core.DirRight, rng)
	if g.Cells()[3] != 4 {
		t.Errorf("cell 3 = %d, want 4", g.Cells()[3])
	}

	g = New(settings4x4(), rng)
	g.SetCells([]int{
		2, 0, 0, 0,
		2, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	g.ApplyMove(core.DirUp, rng)
	if g.Cells()[0] != 4 {
		t.Errorf("cell 0 = %d, want 4", g.Cells()[0])
	}

	g = New(settings4x4(), rng)
	g.SetCells([]int{
		0, 0, 0, 0,
		0, 0, 0, 0,
		2, 0, 0, 0,
		2, 0, 0, 0,
	})
	g.ApplyMove(core.DirDown, rng)
	if g.Cells()[12] != 4 {
		t.Errorf("cell 12 = %d, want 4", g.Cells()[12])
	}
}

func TestNoChangeMoveRejected(t *testing.T) {
	rng := core.NewSessionRng(42)
	g := New(settings4x4(), rng)
	g.SetCells([]int{
		2, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	if g.ApplyMove(core.DirLeft, rng) {
		t.Error("no-op move must be rejected")
	}
	if g.MovesMade() != 0 {
		t.Error("no-op move must not consume a turn")
	}
}

func TestMoveSpawnsOneTile(t *testing.T) {
	rng := core.NewSessionRng(42)
	g := New(settings4x4(), rng)
	g.SetCells([]int{
		2, 2, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	g.ApplyMove(core.DirLeft, rng)

	nonZero := 0
	for _, v := range g.Cells() {
		if v != 0 {
			nonZero++
		}
	}
	// Two merged into one, plus one spawned.
	if nonZero != 2 {
		t.Errorf("tiles = %d, want 2", nonZero)
	}
}

func TestWinOnTarget(t *testing.T) {
	rng := core.NewSessionRng(42)
	g := New(settings4x4(), rng)
	g.SetCells([]int{
		1024, 1024, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	g.ApplyMove(core.DirLeft, rng)

	if g.Status() != StatusWon {
		t.Errorf("status = %s, want %s", g.Status(), StatusWon)
	}
}

func TestScoreAccumulates(t *testing.T) {
	rng := core.NewSessionRng(42)
	g := New(settings4x4(), rng)
	g.SetCells([]int{
		2, 2, 4, 4,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	g.ApplyMove(core.DirLeft, rng)

	if g.Score() != 12 {
		t.Errorf("score = %d, want 12", g.Score())
	}
}

func TestPowerOfTwoInvariant(t *testing.T) {
	rng := core.NewSessionRng(1234)
	g := New(settings4x4(), rng)

	dirs := []core.Direction{core.DirLeft, core.DirUp, core.DirRight, core.DirDown}
	for i := 0; i < 300 && g.Status() == StatusInProgress; i++ {
		g.ApplyMove(dirs[i%4], rng)

		for _, v := range g.Cells() {
			if v == 0 {
				continue
			}
			if v&(v-1) != 0 {
				t.Fatalf("tile %d is not a power of two", v)
			}
			if v > 2048 {
				t.Fatalf("tile %d exceeds the target", v)
			}
		}
	}
}

func TestCustomBoardSize(t *testing.T) {
	g := New(protocol.Puzzle2048Settings{FieldWidth: 5, FieldHeight: 6, TargetValue: 1024}, core.NewSessionRng(42))

	if len(g.Cells()) != 30 {
		t.Errorf("cells = %d, want 30", len(g.Cells()))
	}
}

func TestDeterministicFromSeed(t *testing.T) {
	g1 := New(settings4x4(), core.NewSessionRng(99))
	g2 := New(settings4x4(), core.NewSessionRng(99))

	rng1 := core.NewSessionRng(5)
	rng2 := core.NewSessionRng(5)
	dirs := []core.Direction{core.DirLeft, core.DirUp, core.DirRight, core.DirDown}
	for i := range 50 {
		g1.ApplyMove(dirs[i%4], rng1)
		g2.ApplyMove(dirs[i%4], rng2)
	}

	if !equalCells(g1.Cells(), g2.Cells()) || g1.Score() != g2.Score() {
		t.Error("same seeds and inputs must give identical boards")
	}
}
