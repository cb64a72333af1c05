package formdata

// Limits bounds the resources a single parse may consume.
// A zero value for any dimension means the dimension is unbounded.
type Limits struct {
	FieldNameSize int64 // max bytes of a part name
	FieldSize     int64 // max bytes of a field value
	Fields        int64 // max number of non-file parts
	FileSize      int64 // max bytes of a single file
	Files         int64 // max number of accepted file parts
	Parts         int64 // max number of parts of any kind
	HeaderPairs   int64 // max header lines per part
}

// enforcer owns the counters of one in-flight parse.
type enforcer struct {
	limits Limits
	parts  int64
	fields int64
	files  int64
	pairs  int64
}

func newEnforcer(l Limits) *enforcer {
	return &enforcer{limits: l}
}

func exceeded(limit, n int64) bool {
	return limit > 0 && n > limit
}

func (e *enforcer) startHeaders() { e.pairs = 0 }

func (e *enforcer) headerPair() error {
	e.pairs++
	if exceeded(e.limits.HeaderPairs, e.pairs) {
		return newErrorf(CodeLimitFieldKey, "too many header pairs")
	}
	return nil
}

func (e *enforcer) openPart() error {
	e.parts++
	if exceeded(e.limits.Parts, e.parts) {
		return NewError(CodeLimitPartCount, "")
	}
	return nil
}

func (e *enforcer) fieldName(name string) error {
	if exceeded(e.limits.FieldNameSize, int64(len(name))) {
		return NewError(CodeLimitFieldKey, name)
	}
	return nil
}

func (e *enforcer) openField(name string) error {
	e.fields++
	if exceeded(e.limits.Fields, e.fields) {
		return NewError(CodeLimitFieldCount, name)
	}
	return nil
}

func (e *enforcer) acceptFile(name string) error {
	e.files++
	if exceeded(e.limits.Files, e.files) {
		return NewError(CodeLimitFileCount, name)
	}
	return nil
}

// allowance returns how many more body bytes a part may receive, or -1 when unbounded.
func (e *enforcer) allowance(p *Part) int64 {
	limit := e.limits.FieldSize
	if p.IsFile() {
		limit = e.limits.FileSize
	}
	if limit <= 0 {
		return -1
	}
	return max(limit-p.size, 0)
}

func (e *enforcer) sizeError(p *Part) *Error {
	if p.IsFile() {
		return NewError(CodeLimitFileSize, p.Name)
	}
	return NewError(CodeLimitFieldValue, p.Name)
}
