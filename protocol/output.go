package protocol

// statusOK backs the fast path for the single most common reply on the wire.
var statusOK = []byte("OK")

// StatusOK is the canonical value StatusOutput yields for an "+OK" reply.
const StatusOK = "OK"

// CommandOutput accumulates one command's reply into its declared result
// shape. The variant is chosen when the command is built, by the result shape
// the builder wants, never by inspecting the reply at runtime.
//
// An output is written only by the dispatcher, on the I/O goroutine, and read
// only after the owning command completes. It is never accessed from both
// sides at once.
type CommandOutput interface {
	// Set consumes the command's top-level reply frame. An Error frame is
	// stored as the output's error regardless of variant.
	Set(r *Reply)

	// SetErr stores a failure that did not come from a reply frame, such as
	// a connection loss while the command was still queued.
	SetErr(err error)

	// Get returns the accumulated value, or the stored error if one is set.
	Get() (interface{}, error)
}

// output carries the error flag shared by every variant.
type output struct {
	err error
}

// serverError records r if it is an error frame. Variants call this first
// and yield nothing when it reports true.
func (o *output) serverError(r *Reply) bool {
	if r.Type == ReplyError {
		o.err = ServerError(string(r.Str))
		return true
	}

	return false
}

func (o *output) SetErr(err error) {
	o.err = err
}

func (o *output) errorCheck() error {
	return o.err
}

// StatusOutput decodes a status reply. "+OK" maps to the canonical StatusOK
// constant without allocating; any other status is carried as-is.
type StatusOutput struct {
	output
	status string
}

func NewStatusOutput() *StatusOutput {
	return &StatusOutput{}
}

func (o *StatusOutput) Set(r *Reply) {
	if o.serverError(r) {
		return
	}

	if r.IsOK() {
		o.status = StatusOK
		return
	}

	o.status = string(r.Str)
}

func (o *StatusOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.status, nil
}

// ValueOutput decodes a single bulk value. The nil bulk yields a nil slice.
type ValueOutput struct {
	output
	value []byte
}

func NewValueOutput() *ValueOutput {
	return &ValueOutput{}
}

func (o *ValueOutput) Set(r *Reply) {
	if o.serverError(r) || r.Nil {
		return
	}

	o.value = r.Str
}

func (o *ValueOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.value, nil
}

// IntegerOutput decodes an integer reply.
type IntegerOutput struct {
	output
	value int64
}

func NewIntegerOutput() *IntegerOutput {
	return &IntegerOutput{}
}

func (o *IntegerOutput) Set(r *Reply) {
	if o.serverError(r) {
		return
	}

	o.value = r.Int
}

func (o *IntegerOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.value, nil
}

// BoolOutput decodes an integer or nil-bulk reply as a boolean: 1 is true,
// 0 and the nil value are false.
type BoolOutput struct {
	output
	value bool
}

func NewBoolOutput() *BoolOutput {
	return &BoolOutput{}
}

func (o *BoolOutput) Set(r *Reply) {
	if o.serverError(r) {
		return
	}

	o.value = r.Type == ReplyInteger && r.Int == 1
}

func (o *BoolOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.value, nil
}

// ValueListOutput decodes an array of bulk values into an ordered slice. Nil
// elements become nil entries; the nil array yields a nil slice.
type ValueListOutput struct {
	output
	values [][]byte
}

func NewValueListOutput() *ValueListOutput {
	return &ValueListOutput{}
}

func (o *ValueListOutput) Set(r *Reply) {
	if o.serverError(r) || r.Nil {
		return
	}

	o.values = make([][]byte, 0, len(r.Elems))
	for _, e := range r.Elems {
		if e.Nil {
			o.values = append(o.values, nil)
			continue
		}

		o.values = append(o.values, e.Str)
	}
}

func (o *ValueListOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.values, nil
}

// ValueSetOutput decodes an array of bulk values into an unordered set.
type ValueSetOutput struct {
	output
	values map[string]struct{}
}

func NewValueSetOutput() *ValueSetOutput {
	return &ValueSetOutput{}
}

func (o *ValueSetOutput) Set(r *Reply) {
	if o.serverError(r) || r.Nil {
		return
	}

	o.values = make(map[string]struct{}, len(r.Elems))
	for _, e := range r.Elems {
		o.values[string(e.Str)] = struct{}{}
	}
}

func (o *ValueSetOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.values, nil
}

// MapOutput decodes an array of alternating field/value bulks into a map.
type MapOutput struct {
	output
	values map[string][]byte
}

func NewMapOutput() *MapOutput {
	return &MapOutput{}
}

func (o *MapOutput) Set(r *Reply) {
	if o.serverError(r) || r.Nil {
		return
	}

	o.values = make(map[string][]byte, len(r.Elems)/2)
	for i := 0; i+1 < len(r.Elems); i += 2 {
		o.values[string(r.Elems[i].Str)] = r.Elems[i+1].Str
	}
}

func (o *MapOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.values, nil
}

// ScanResult is one page of a cursor iteration: the keys of this page plus
// the continuation token to pass to the next SCAN. Cursor "0" means the
// iteration is finished.
type ScanResult struct {
	Cursor string
	Keys   [][]byte
}

// ScanOutput decodes the two-element cursor reply: a bulk continuation token
// followed by an array of keys.
type ScanOutput struct {
	output
	result ScanResult
}

func NewScanOutput() *ScanOutput {
	return &ScanOutput{}
}

func (o *ScanOutput) Set(r *Reply) {
	if o.serverError(r) {
		return
	}

	if len(r.Elems) != 2 {
		return
	}

	o.result.Cursor = string(r.Elems[0].Str)
	for _, e := range r.Elems[1].Elems {
		o.result.Keys = append(o.result.Keys, e.Str)
	}
}

func (o *ScanOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.result, nil
}

// NestedOutput decodes a reply of any shape into plain Go values: status and
// bulk frames become []byte, integers int64, nils nil, and arrays recurse
// into []interface{} without a depth limit. It backs ad-hoc commands whose
// result shape isn't known up front.
type NestedOutput struct {
	output
	value interface{}
}

func NewNestedOutput() *NestedOutput {
	return &NestedOutput{}
}

func (o *NestedOutput) Set(r *Reply) {
	if o.serverError(r) {
		return
	}

	o.value = nested(r)
}

func (o *NestedOutput) Get() (interface{}, error) {
	if err := o.errorCheck(); err != nil {
		return nil, err
	}

	return o.value, nil
}

func nested(r *Reply) interface{} {
	if r.Nil {
		return nil
	}

	switch r.Type {
	case ReplyInteger:
		return r.Int
	case ReplyArray:
		out := make([]interface{}, 0, len(r.Elems))
		for _, e := range r.Elems {
			out = append(out, nested(e))
		}
		return out
	default:
		return r.Str
	}
}
