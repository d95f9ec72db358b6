package compiler

import (
	"fmt"
	"strconv"
)

// LabelKind names the construct a label set belongs to. The kind only
// affects the generated label text.
type LabelKind int

const (
	LabelWhile LabelKind = iota
	LabelDoWhile
	LabelFor
	LabelForIn
	LabelForOf
	LabelIf
	LabelSwitch
	LabelTry
)

var labelKindNames = [...]string{"while", "dowhile", "for", "forin", "forof", "if", "switch", "try"}

func (k LabelKind) String() string {
	if int(k) < len(labelKindNames) {
		return labelKindNames[k]
	}
	return fmt.Sprintf("LabelKind(%d)", int(k))
}

// LabelSet is the bundle of jump targets one construct owns. Every set
// carries the full superset of roles; each construct uses the ones that make
// sense for it and ignores the rest. All labels in a set share a prefix of
// the form kind_id, prefixed again by the enclosing function's name inside a
// function body, so the generated text reads as a trace of the source
// structure.
type LabelSet struct {
	prefix  string
	Start   string
	Body    string
	Update  string
	Else    string
	Catch   string
	Finally string
	End     string
}

// Case is the label of the n-th case body of a switch, counted from one.
func (ls LabelSet) Case(n int) string {
	return ls.prefix + "_case_" + strconv.Itoa(n)
}

// Default is the label of a switch's default body.
func (ls LabelSet) Default() string {
	return ls.prefix + "_default"
}

// LabelGen mints unique label sets from one monotone counter and tracks the
// three handler stacks that give break, continue and throw their jump
// targets. The stacks are independent: a switch pushes only a break target,
// so a continue inside it still reaches the enclosing loop, and a try pushes
// only a catch target.
type LabelGen struct {
	next      int
	function  string
	breaks    []string
	continues []string
	catches   []string
}

// NewLabelGen returns a generator with empty handler stacks.
func NewLabelGen() *LabelGen {
	return &LabelGen{next: 1}
}

// NewLabelSet mints the label bundle for one construct.
func (lg *LabelGen) NewLabelSet(kind LabelKind) LabelSet {
	id := lg.next
	lg.next++
	prefix := kind.String() + "_" + strconv.Itoa(id)
	if lg.function != "" {
		prefix = lg.function + "_" + prefix
	}
	return LabelSet{
		prefix:  prefix,
		Start:   prefix + "_start",
		Body:    prefix + "_body",
		Update:  prefix + "_update",
		Else:    prefix + "_else",
		Catch:   prefix + "_catch",
		Finally: prefix + "_finally",
		End:     prefix + "_end",
	}
}

// NewFunctionLabels mints the entry and skip labels for a function
// declaration. The entry label is the bare prefix so call sites read as
// CALL func_name_id.
func (lg *LabelGen) NewFunctionLabels(name string) LabelSet {
	id := lg.next
	lg.next++
	prefix := "func_" + name + "_" + strconv.Itoa(id)
	return LabelSet{prefix: prefix, Start: prefix, End: prefix + "_end"}
}

// SetFunction switches the label prefix to the named function and returns
// the previous value so the caller can restore it.
func (lg *LabelGen) SetFunction(name string) string {
	prev := lg.function
	lg.function = name
	return prev
}

// PushBreak makes label the target of break statements until popped.
func (lg *LabelGen) PushBreak(label string) {
	lg.breaks = append(lg.breaks, label)
}

// PopBreak removes the innermost break target.
func (lg *LabelGen) PopBreak() error {
	if len(lg.breaks) == 0 {
		return fmt.Errorf("unmatched break target pop: %w", ErrEmptyHandlerStack)
	}
	lg.breaks = lg.breaks[:len(lg.breaks)-1]
	return nil
}

// BreakTarget is the innermost break target.
func (lg *LabelGen) BreakTarget() (string, error) {
	if len(lg.breaks) == 0 {
		return "", fmt.Errorf("break outside loop or switch: %w", ErrEmptyHandlerStack)
	}
	return lg.breaks[len(lg.breaks)-1], nil
}

// PushContinue makes label the target of continue statements until popped.
func (lg *LabelGen) PushContinue(label string) {
	lg.continues = append(lg.continues, label)
}

// PopContinue removes the innermost continue target.
func (lg *LabelGen) PopContinue() error {
	if len(lg.continues) == 0 {
		return fmt.Errorf("unmatched continue target pop: %w", ErrEmptyHandlerStack)
	}
	lg.continues = lg.continues[:len(lg.continues)-1]
	return nil
}

// ContinueTarget is the innermost continue target.
func (lg *LabelGen) ContinueTarget() (string, error) {
	if len(lg.continues) == 0 {
		return "", fmt.Errorf("continue outside loop: %w", ErrEmptyHandlerStack)
	}
	return lg.continues[len(lg.continues)-1], nil
}

// PushCatch makes label the landing point for throw until popped.
func (lg *LabelGen) PushCatch(label string) {
	lg.catches = append(lg.catches, label)
}

// PopCatch removes the innermost catch target.
func (lg *LabelGen) PopCatch() error {
	if len(lg.catches) == 0 {
		return fmt.Errorf("unmatched catch target pop: %w", ErrEmptyHandlerStack)
	}
	lg.catches = lg.catches[:len(lg.catches)-1]
	return nil
}

// CatchTarget is the innermost catch target. An empty stack is not an
// error: a throw with no handler lowers to a halt.
func (lg *LabelGen) CatchTarget() (string, bool) {
	if len(lg.catches) == 0 {
		return "", false
	}
	return lg.catches[len(lg.catches)-1], true
}
