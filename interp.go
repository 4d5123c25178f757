package main

// Interpolation tuning for remote entity views
const (
	SampleCapacity     = 30
	InterpDelay        = 0.1  // seconds behind server time when rendering
	ExtrapolationLimit = 15.0 // guard: beyond this, freeze at the last pose
)

// Sample is one timestamped snapshot of a remote entity's replicated
// movement state
type Sample struct {
	Pos     Vec3
	Yaw     float64
	Vel     Vec3
	Dashing bool
	Time    float64
}

// SampleBuffer is a fixed-capacity FIFO ring of samples ordered by
// timestamp. Out-of-order pushes are clamped so the sequence stays
// monotonically non-decreasing.
type SampleBuffer struct {
	buf   [SampleCapacity]Sample
	start int
	count int
}

// Len returns the number of buffered samples
func (b *SampleBuffer) Len() int {
	return b.count
}

// At returns the i-th oldest sample
func (b *SampleBuffer) At(i int) Sample {
	return b.buf[(b.start+i)%SampleCapacity]
}

// Push appends a sample, evicting the oldest when full
func (b *SampleBuffer) Push(s Sample) {
	if b.count > 0 {
		last := b.At(b.count - 1)
		if s.Time < last.Time {
			s.Time = last.Time
		}
	}
	if b.count < SampleCapacity {
		b.buf[(b.start+b.count)%SampleCapacity] = s
		b.count++
		return
	}
	b.buf[b.start] = s
	b.start = (b.start + 1) % SampleCapacity
}

// RemoteEntity is the client-side view of an entity owned by someone else.
// It never simulates physics; it appends a sample whenever any replicated
// movement field changes and renders by interpolating between samples.
type RemoteEntity struct {
	ID      string
	Samples SampleBuffer

	Pos     Vec3
	Yaw     float64
	Dashing bool

	Frozen  *Field[bool]
	Visible *Field[bool]
	Health  *Field[int]
	Team    *Field[int]

	pos  *Field[Vec3]
	yaw  *Field[float64]
	vel  *Field[Vec3]
	dash *Field[bool]

	batchTime float64
}

// NewRemoteEntity registers a remote view's fields in the client store
func NewRemoteEntity(store *FieldStore, id string) *RemoteEntity {
	r := &RemoteEntity{ID: id}
	r.pos = NewClientField(store, id, FieldPos, Vec3{})
	r.yaw = NewClientField(store, id, FieldYaw, 0.0)
	r.vel = NewClientField(store, id, FieldVel, Vec3{})
	r.dash = NewClientField(store, id, FieldDashing, false)
	r.Frozen = NewClientField(store, id, FieldFrozen, false)
	r.Visible = NewClientField(store, id, FieldVisible, true)
	r.Health = NewClientField(store, id, FieldHealth, PlayerMaxHealth)
	r.Team = NewClientField(store, id, FieldTeam, TeamNone)

	snapshot := func() {
		r.Samples.Push(Sample{
			Pos:     r.pos.Get(),
			Yaw:     r.yaw.Get(),
			Vel:     r.vel.Get(),
			Dashing: r.dash.Get(),
			Time:    r.batchTime,
		})
	}
	r.pos.OnChange(func(_, _ Vec3) { snapshot() })
	r.yaw.OnChange(func(_, _ float64) { snapshot() })
	r.vel.OnChange(func(_, _ Vec3) { snapshot() })
	r.dash.OnChange(func(_, _ bool) { snapshot() })
	return r
}

// SetBatchTime records the server timestamp of the frame currently being
// applied; samples pushed by field observers adopt it
func (r *RemoteEntity) SetBatchTime(t float64) {
	r.batchTime = t
}

// Render updates the displayed pose for the given server-clock time.
// renderTime = serverNow - InterpDelay is computed by the caller's clock
// estimate.
func (r *RemoteEntity) Render(renderTime float64) {
	n := r.Samples.Len()
	if n == 0 {
		// No samples yet: do not move from an undefined origin
		return
	}

	first := r.Samples.At(0)
	last := r.Samples.At(n - 1)

	switch {
	case renderTime <= first.Time:
		r.setPose(first.Pos, first.Yaw, first.Dashing)

	case renderTime >= last.Time:
		// No bracketing pair: extrapolate with the last known velocity,
		// but never past the guard
		dt := renderTime - last.Time
		if dt > ExtrapolationLimit {
			dt = ExtrapolationLimit
		}
		r.setPose(last.Pos.Add(last.Vel.Scale(dt)), last.Yaw, last.Dashing)

	default:
		for i := 1; i < n; i++ {
			b := r.Samples.At(i)
			if b.Time < renderTime {
				continue
			}
			a := r.Samples.At(i - 1)
			span := b.Time - a.Time
			t := 1.0
			if span > 0 {
				t = (renderTime - a.Time) / span
			}
			r.setPose(a.Pos.Lerp(b.Pos, t), LerpAngle(a.Yaw, b.Yaw, t), b.Dashing)
			break
		}
	}
}

func (r *RemoteEntity) setPose(pos Vec3, yaw float64, dashing bool) {
	r.Pos = pos
	r.Yaw = yaw
	r.Dashing = dashing
}
