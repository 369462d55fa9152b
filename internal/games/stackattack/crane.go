package stackattack

// CraneAction is what a crane did on its update.
type CraneAction int

const (
	CraneNoAction CraneAction = iota
	CraneDropBox
	CraneFinished
)

// Crane travels across the top of the field and drops one box over its
// target column before leaving on the far side.
type Crane struct {
	ID           int
	X            int
	TargetX      int
	BoxPatternID int
	Dropped      bool

	step       int
	fieldWidth int
}

// NewCrane creates a crane entering at startX (just off-field) aimed at
// targetX.
func NewCrane(id, startX, targetX, patternID, fieldWidth int) *Crane {
	step := 1
	if startX > targetX {
		step = -1
	}
	return &Crane{
		ID:           id,
		X:            startX,
		TargetX:      targetX,
		BoxPatternID: patternID,
		step:         step,
		fieldWidth:   fieldWidth,
	}
}

// Update moves the crane one cell and reports what happened: a box drop
// over the target column, or completion once the crane leaves the field.
func (c *Crane) Update() CraneAction {
	c.X += c.step

	if c.X < -1 || c.X > c.fieldWidth {
		return CraneFinished
	}

	if !c.Dropped && c.X == c.TargetX {
		c.Dropped = true
		return CraneDropBox
	}

	if c.Dropped && (c.X < 0 || c.X >= c.fieldWidth) {
		return CraneFinished
	}

	return CraneNoAction
}
