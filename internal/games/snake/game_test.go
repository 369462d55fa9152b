package snake

import (
	"testing"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

func wrapSettings(w, h int) protocol.SnakeSettings {
	return protocol.SnakeSettings{
		FieldWidth:           w,
		FieldHeight:          h,
		WallCollisionMode:    protocol.WallWrapAround,
		DeadSnakeBehavior:    protocol.DeadSnakeDisappear,
		MaxFoodCount:         1,
		FoodSpawnProbability: 0.001,
		TickIntervalMs:       100,
	}
}

func noFood(s protocol.SnakeSettings) protocol.SnakeSettings {
	// Keeps the spawn probability at its minimum. MaxFoodCount is clamped
	// to 1, so callers also pre-fill the budget with an unreachable cell
	// instead of relying on probability alone.
	s.FoodSpawnProbability = 0.001
	return s
}

func TestThreeTickWrap(t *testing.T) {
	// W=5, H=3, wrap-around, single player facing Up with head at (2,1).
	// Heads after ticks 1..3: (2,0), (2,2), (2,1).
	g := New(noFood(wrapSettings(5, 3)))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 2, Y: 1}, core.DirUp)
	// Occupy the food budget so spawning cannot interfere.
	g.FoodSet[core.Point{X: 0, Y: 0}] = true

	rng := core.NewSessionRng(1)
	expected := []core.Point{{X: 2, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 1}}

	for i, want := range expected {
		g.Update(rng)
		got := g.Snakes[player].Head()
		if got != want {
			t.Fatalf("tick %d: head = %v, want %v", i+1, got, want)
		}
	}

	if !g.Snakes[player].Alive() {
		t.Error("snake should be alive after wrapping")
	}
	if g.Snakes[player].Score != 0 {
		t.Errorf("score = %d, want 0", g.Snakes[player].Score)
	}
}

func TestHeadOnCollision(t *testing.T) {
	settings := protocol.SnakeSettings{
		FieldWidth:           6,
		FieldHeight:          3,
		WallCollisionMode:    protocol.WallDeath,
		DeadSnakeBehavior:    protocol.DeadSnakeDisappear,
		MaxFoodCount:         1,
		FoodSpawnProbability: 0.001,
		TickIntervalMs:       100,
	}
	g := New(settings)
	a := core.PlayerID("a")
	b := core.PlayerID("b")
	g.AddSnake(a, core.Point{X: 2, Y: 1}, core.DirRight)
	g.AddSnake(b, core.Point{X: 3, Y: 1}, core.DirLeft)
	g.FoodSet[core.Point{X: 0, Y: 0}] = true

	g.Update(core.NewSessionRng(1))

	for _, id := range []core.PlayerID{a, b} {
		s := g.Snakes[id]
		if s.Alive() {
			t.Errorf("snake %s should be dead", id)
		}
		if s.DeathReason == nil || *s.DeathReason != DeathOtherSnake {
			t.Errorf("snake %s death reason = %v, want %s", id, s.DeathReason, DeathOtherSnake)
		}
	}

	if !g.IsGameOver(2) {
		t.Error("game should be over with no alive snakes")
	}
}

func TestWallCollisionDeath(t *testing.T) {
	settings := wrapSettings(5, 5)
	settings.WallCollisionMode = protocol.WallDeath
	g := New(settings)
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 2, Y: 2}, core.DirUp)
	g.FoodSet[core.Point{X: 4, Y: 4}] = true

	rng := core.NewSessionRng(7)
	for range 3 {
		g.Update(rng)
	}

	s := g.Snakes[player]
	if s.Alive() {
		t.Fatal("snake should have hit the wall")
	}
	if *s.DeathReason != DeathWallCollision {
		t.Errorf("death reason = %s, want %s", *s.DeathReason, DeathWallCollision)
	}
}

func TestSelfCollision(t *testing.T) {
	g := New(noFood(wrapSettings(10, 10)))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 5, Y: 5}, core.DirUp)
	g.FoodSet[core.Point{X: 0, Y: 0}] = true
	s := g.Snakes[player]

	// Grow the snake artificially into a hook so that moving right runs
	// into its own body.
	s.Body = []core.Point{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 5}, {X: 6, Y: 4}}
	s.BodySet = map[core.Point]bool{}
	for _, p := range s.Body {
		s.BodySet[p] = true
	}
	s.Direction = core.DirRight

	g.Update(core.NewSessionRng(1))

	if s.Alive() {
		t.Fatal("snake should have collided with itself")
	}
	if *s.DeathReason != DeathSelfCollision {
		t.Errorf("death reason = %s, want %s", *s.DeathReason, DeathSelfCollision)
	}
}

func TestMovingOntoOwnTailIsLegal(t *testing.T) {
	g := New(noFood(wrapSettings(10, 10)))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 5, Y: 5}, core.DirUp)
	g.FoodSet[core.Point{X: 0, Y: 0}] = true
	s := g.Snakes[player]

	// A 2x2 loop: the head steps onto the cell the tail vacates this tick.
	s.Body = []core.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 6}}
	s.BodySet = map[core.Point]bool{}
	for _, p := range s.Body {
		s.BodySet[p] = true
	}
	s.Direction = core.DirDown

	g.Update(core.NewSessionRng(1))

	if !s.Alive() {
		t.Fatalf("moving onto the vacating tail should be legal, died with %v", *s.DeathReason)
	}
	assertBodySetInvariant(t, s)
}

func TestEatingGrowsAndScores(t *testing.T) {
	g := New(wrapSettings(10, 10))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 5, Y: 5}, core.DirUp)
	s := g.Snakes[player]

	g.FoodSet[core.Point{X: 5, Y: 4}] = true
	lenBefore := len(s.Body)

	g.Update(core.NewSessionRng(1))

	if s.Score != 1 {
		t.Errorf("score = %d, want 1", s.Score)
	}
	if len(s.Body) != lenBefore+1 {
		t.Errorf("body length = %d, want %d", len(s.Body), lenBefore+1)
	}
	assertBodySetInvariant(t, s)
}

func TestDirectionCoalescing(t *testing.T) {
	// Multiple turns within one tick window coalesce to the last valid one.
	g := New(noFood(wrapSettings(10, 10)))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 5, Y: 5}, core.DirUp)
	g.FoodSet[core.Point{X: 0, Y: 0}] = true

	g.SetDirection(player, core.DirLeft)
	g.SetDirection(player, core.DirDown) // opposite of Up: ignored
	g.SetDirection(player, core.DirRight)

	g.Update(core.NewSessionRng(1))

	if got := g.Snakes[player].Direction; got != core.DirRight {
		t.Errorf("direction = %s, want right", got)
	}
}

func TestKillSnakeIsDurable(t *testing.T) {
	g := New(noFood(wrapSettings(10, 10)))
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 5, Y: 5}, core.DirUp)
	g.FoodSet[core.Point{X: 0, Y: 0}] = true

	g.KillSnake(player, DeathPlayerDisconnected)
	rng := core.NewSessionRng(1)
	g.Update(rng)
	g.Update(rng)

	s := g.Snakes[player]
	if s.Alive() {
		t.Fatal("killed snake must stay dead")
	}
	if *s.DeathReason != DeathPlayerDisconnected {
		t.Errorf("death reason = %s, want %s", *s.DeathReason, DeathPlayerDisconnected)
	}
	if g.GameEndReason == nil || *g.GameEndReason != DeathPlayerDisconnected {
		t.Error("game end reason should record the disconnect")
	}
}

func TestFieldCellConservation(t *testing.T) {
	// Alive body cells + food + free cells account for the whole field.
	settings := wrapSettings(12, 12)
	settings.MaxFoodCount = 5
	settings.FoodSpawnProbability = 1.0
	g := New(settings)
	g.AddSnake("p1", StartPosition(0, 2, 12, 12), core.DirUp)
	g.AddSnake("p2", StartPosition(1, 2, 12, 12), core.DirUp)

	rng := core.NewSessionRng(42)
	for range 30 {
		g.Update(rng)

		occupied := make(map[core.Point]bool)
		bodyCells := 0
		for _, s := range g.Snakes {
			if !s.Alive() {
				continue
			}
			for _, p := range s.Body {
				if !occupied[p] {
					bodyCells++
				}
				occupied[p] = true
			}
		}
		foodCells := len(g.FoodSet)
		free := 0
		for y := range 12 {
			for x := range 12 {
				p := core.Point{X: x, Y: y}
				if !occupied[p] && !g.FoodSet[p] {
					free++
				}
			}
		}
		if bodyCells+foodCells+free != 12*12 {
			t.Fatalf("cell conservation broken: %d body + %d food + %d free != %d",
				bodyCells, foodCells, free, 12*12)
		}

		if g.IsGameOver(2) {
			break
		}
	}
}

func TestBodySetInvariantOverRandomRun(t *testing.T) {
	settings := wrapSettings(15, 15)
	settings.MaxFoodCount = 3
	settings.FoodSpawnProbability = 1.0
	g := New(settings)
	player := core.PlayerID("p1")
	g.AddSnake(player, core.Point{X: 7, Y: 7}, core.DirUp)

	rng := core.NewSessionRng(99)
	dirs := []core.Direction{core.DirUp, core.DirRight, core.DirDown, core.DirLeft}
	for i := range 200 {
		if i%3 == 0 {
			g.SetDirection(player, dirs[rng.IntN(4)])
		}
		g.Update(rng)
		s := g.Snakes[player]
		if !s.Alive() {
			break
		}
		assertBodySetInvariant(t, s)
	}
}

func TestStartPositions(t *testing.T) {
	tests := []struct {
		idx, total, w, h int
		want             core.Point
	}{
		{0, 1, 10, 10, core.Point{X: 5, Y: 5}},
		{0, 2, 6, 3, core.Point{X: 2, Y: 1}},
		{1, 2, 6, 3, core.Point{X: 4, Y: 1}},
		{2, 3, 30, 10, core.Point{X: 29, Y: 5}},
	}
	for _, tt := range tests {
		got := StartPosition(tt.idx, tt.total, tt.w, tt.h)
		if got != tt.want {
			t.Errorf("StartPosition(%d, %d, %d, %d) = %v, want %v",
				tt.idx, tt.total, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestBotAvoidsDeath(t *testing.T) {
	settings := wrapSettings(8, 8)
	settings.WallCollisionMode = protocol.WallDeath
	g := New(settings)
	player := core.PlayerID("bot")
	g.AddSnake(player, core.Point{X: 4, Y: 0}, core.DirUp)
	g.FoodSet[core.Point{X: 0, Y: 7}] = true

	// Heading up along the top wall: moving up dies next tick, so the bot
	// must turn.
	dir := CalculateBotMove(protocol.SnakeBotEfficient, player, g)
	if dir == nil {
		t.Fatal("bot should propose a turn away from the wall")
	}
	if *dir == core.DirUp || dir.IsOpposite(core.DirUp) {
		t.Errorf("bot chose %s, want a sideways turn", *dir)
	}
}

func assertBodySetInvariant(t *testing.T, s *Snake) {
	t.Helper()
	expected := make(map[core.Point]bool, len(s.Body))
	for _, p := range s.Body {
		expected[p] = true
	}
	if len(expected) != len(s.BodySet) {
		t.Fatalf("body set size %d != distinct body cells %d", len(s.BodySet), len(expected))
	}
	for p := range expected {
		if !s.BodySet[p] {
			t.Fatalf("body cell %v missing from body set", p)
		}
	}
}
