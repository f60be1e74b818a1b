package interop

// Array is an Object whose host referent is an array. Indexed accessors
// bounds-check against the current host length; the inherited Get/Set path
// does not, matching host property semantics for non-index keys.
type Array struct {
	Object
}

// Length returns the host array's current length.
func (a *Array) Length() (int, error) {
	lv, err := a.host.Get("length")
	if err != nil {
		return 0, err
	}
	return normalizeLength("Array.Length", lv)
}

func (a *Array) checkIndex(op string, i, n int) error {
	if i < 0 || i >= n {
		return errf(KindIndexOutOfRange, op, "index %d out of range [0, %d)", i, n)
	}
	return nil
}

// At returns the element at index i, bounds-checked against the current
// length.
func (a *Array) At(i int) (any, error) {
	n, err := a.Length()
	if err != nil {
		return nil, err
	}
	if err := a.checkIndex("Array.At", i, n); err != nil {
		return nil, err
	}
	return a.Get(i)
}

// SetAt replaces the element at index i, bounds-checked against the current
// length.
func (a *Array) SetAt(i int, value any) error {
	n, err := a.Length()
	if err != nil {
		return err
	}
	if err := a.checkIndex("Array.SetAt", i, n); err != nil {
		return err
	}
	return a.Set(i, value)
}

// Add appends a single element to the host array.
func (a *Array) Add(value any) error {
	_, err := a.CallMethod("push", value)
	return err
}

// AddAll appends every element of values in order.
func (a *Array) AddAll(values []any) error {
	for _, v := range values {
		if err := a.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// Insert places value at index i, shifting later elements right. i may equal
// the current length, in which case Insert behaves like Add.
func (a *Array) Insert(i int, value any) error {
	n, err := a.Length()
	if err != nil {
		return err
	}
	if i < 0 || i > n {
		return errf(KindIndexOutOfRange, "Array.Insert", "index %d out of range [0, %d]", i, n)
	}
	_, err = a.CallMethod("splice", i, 0, value)
	return err
}

// RemoveAt removes and returns the element at index i.
func (a *Array) RemoveAt(i int) (any, error) {
	n, err := a.Length()
	if err != nil {
		return nil, err
	}
	if err := a.checkIndex("Array.RemoveAt", i, n); err != nil {
		return nil, err
	}
	removed, err := a.Get(i)
	if err != nil {
		return nil, err
	}
	if _, err := a.CallMethod("splice", i, 1); err != nil {
		return nil, err
	}
	return removed, nil
}

// RemoveLast removes and returns the final element.
func (a *Array) RemoveLast() (any, error) {
	n, err := a.Length()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errf(KindEmptyRange, "Array.RemoveLast", "array is empty")
	}
	return a.CallMethod("pop")
}

// SetRange copies elements from source into the half-open index range
// [start, end), reading source from offset skip. The destination range must
// lie within the current length and source must cover it.
func (a *Array) SetRange(start, end int, source []any, skip int) error {
	n, err := a.Length()
	if err != nil {
		return err
	}
	if start < 0 || end < start || end > n {
		return errf(KindInvalidRange, "Array.SetRange", "range [%d, %d) invalid for length %d", start, end, n)
	}
	if skip < 0 {
		return errf(KindInvalidArgument, "Array.SetRange", "negative skip count %d", skip)
	}
	span := end - start
	if span == 0 {
		return nil
	}
	if len(source)-skip < span {
		return errf(KindInvalidArgument, "Array.SetRange",
			"source has %d usable elements, need %d", max(len(source)-skip, 0), span)
	}
	for i := 0; i < span; i++ {
		if err := a.SetAt(start+i, source[skip+i]); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns a new host array holding the elements of the half-open range
// [start, end).
func (a *Array) Slice(start, end int) (*Array, error) {
	n, err := a.Length()
	if err != nil {
		return nil, err
	}
	if start < 0 || end < start || end > n {
		return nil, errf(KindInvalidRange, "Array.Slice", "range [%d, %d) invalid for length %d", start, end, n)
	}
	result, err := a.CallMethod("slice", start, end)
	if err != nil {
		return nil, err
	}
	sub, ok := result.(*Array)
	if !ok {
		return nil, errf(KindInvalidArgument, "Array.Slice", "host slice returned %T, want array", result)
	}
	return sub, nil
}

// Sort orders the array in place. A nil comparator uses the host's default
// string ordering; otherwise cmp receives element pairs and returns a
// negative, zero, or positive number.
func (a *Array) Sort(cmp *Callback) error {
	if cmp == nil {
		_, err := a.CallMethod("sort")
		return err
	}
	_, err := a.CallMethod("sort", cmp)
	return err
}
