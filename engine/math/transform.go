package math

func TransformCreate() *Transform {
	return TransformFromPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func TransformFromPosition(position Vec3) *Transform {
	return TransformFromPositionRotationScale(position, NewQuatIdentity(), NewVec3One())
}

func TransformFromPositionRotation(position Vec3, rotation Quaternion) *Transform {
	return TransformFromPositionRotationScale(position, rotation, NewVec3One())
}

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(position, rotation, scale)
	t.Local = NewMat4Identity()
	t.Parent = nil
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns scale, then rotation, then translation relative to the parent.
func (t *Transform) GetLocal() Mat4 {
	if t != nil {
		if t.IsDirty {
			s := NewMat4Scale(t.Scale)
			r := t.Rotation.ToMat4()
			t.Local = s.Mul(r).Mul(NewMat4Translation(t.Position))
			t.IsDirty = false
		}
		return t.Local
	}
	return NewMat4Identity()
}

func (t *Transform) GetWorld() Mat4 {
	if t != nil {
		l := t.GetLocal()
		if t.Parent != nil {
			p := t.Parent.GetWorld()
			return l.Mul(p)
		}
		return l
	}
	return NewMat4Identity()
}

// WorldRotation composes the rotations of the whole parent chain.
func (t *Transform) WorldRotation() Quaternion {
	if t == nil {
		return NewQuatIdentity()
	}
	if t.Parent != nil {
		return t.Parent.WorldRotation().Mul(t.Rotation)
	}
	return t.Rotation
}

// TransformPoint maps a local point to world space.
func (t *Transform) TransformPoint(p Vec3) Vec3 {
	return p.Transform(t.GetWorld())
}

// TransformPoints maps every point in src to world space.
func (t *Transform) TransformPoints(src []Vec3) []Vec3 {
	world := t.GetWorld()
	out := make([]Vec3, len(src))
	for i, p := range src {
		out[i] = p.Transform(world)
	}
	return out
}

// TransformDirection rotates a local direction into world space. Scale is
// ignored and the result is unit length.
func (t *Transform) TransformDirection(d Vec3) Vec3 {
	return t.WorldRotation().Rotate(d).Normalized()
}

// InverseTransformPoint maps a world point back into this transform's local space.
func (t *Transform) InverseTransformPoint(p Vec3) Vec3 {
	if t == nil {
		return p
	}
	if t.Parent != nil {
		p = t.Parent.InverseTransformPoint(p)
	}
	local := t.Rotation.Inverse().Rotate(p.Sub(t.Position))
	return local.Div(t.Scale)
}

// Clone deep-copies the transform and its parent chain.
func (t *Transform) Clone() *Transform {
	if t == nil {
		return nil
	}
	c := *t
	c.Parent = t.Parent.Clone()
	return &c
}
