package step

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Kind is the type of a Part 21 parameter.
type Kind int

// Parameter kinds.
const (
	KindUnset Kind = iota
	KindDerived
	KindInt
	KindReal
	KindString
	KindEnum
	KindRef
	KindList
	KindTyped
)

// Value is one parameter of an entity record.
type Value struct {
	Kind Kind
	Int  int64
	Real float64
	// Str holds the text of strings and enumerations and the type name of a
	// typed parameter.
	Str  string
	Ref  int
	List []Value
}

// Parameter constructors.
var (
	Unset   = Value{Kind: KindUnset}
	Derived = Value{Kind: KindDerived}
)

// Int returns an integer parameter.
func Int(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Real returns a real parameter.
func Real(f float64) Value { return Value{Kind: KindReal, Real: f} }

// Str returns a string parameter.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// Enum returns an enumeration parameter such as .T.
func Enum(s string) Value { return Value{Kind: KindEnum, Str: s} }

// Bool returns the logical enumeration .T. or .F.
func Bool(b bool) Value {
	if b {
		return Enum("T")
	}
	return Enum("F")
}

// Ref returns a reference to instance id.
func Ref(id int) Value { return Value{Kind: KindRef, Ref: id} }

// List returns an aggregate parameter.
func List(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// Refs returns an aggregate of references.
func Refs(ids ...int) Value {
	vs := make([]Value, len(ids))
	for i, id := range ids {
		vs[i] = Ref(id)
	}
	return List(vs...)
}

// Reals returns an aggregate of reals.
func Reals(fs ...float64) Value {
	vs := make([]Value, len(fs))
	for i, f := range fs {
		vs[i] = Real(f)
	}
	return List(vs...)
}

// Typed returns a typed parameter such as LENGTH_MEASURE(1.E-07).
func Typed(name string, v Value) Value {
	return Value{Kind: KindTyped, Str: name, List: []Value{v}}
}

// Number returns a numeric parameter as float64.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindReal:
		return v.Real, true
	case KindInt:
		return float64(v.Int), true
	case KindTyped:
		if len(v.List) == 1 {
			return v.List[0].Number()
		}
	}
	return 0, false
}

// Logical returns the value of a .T. or .F. enumeration.
func (v Value) Logical() (bool, bool) {
	if v.Kind != KindEnum {
		return false, false
	}
	switch v.Str {
	case "T":
		return true, true
	case "F":
		return false, true
	}
	return false, false
}

func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.Kind {
	case KindUnset:
		b.WriteByte('$')
	case KindDerived:
		b.WriteByte('*')
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindReal:
		b.WriteString(formatReal(v.Real))
	case KindString:
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(v.Str, "'", "''"))
		b.WriteByte('\'')
	case KindEnum:
		b.WriteByte('.')
		b.WriteString(v.Str)
		b.WriteByte('.')
	case KindRef:
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(v.Ref))
	case KindList:
		b.WriteByte('(')
		for i, e := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			e.format(b)
		}
		b.WriteByte(')')
	case KindTyped:
		b.WriteString(v.Str)
		b.WriteByte('(')
		for _, e := range v.List {
			e.format(b)
		}
		b.WriteByte(')')
	}
}

// formatReal renders f with the mandatory decimal point of the exchange
// structure: 1 is written "1.", 1e-07 is written "1.E-07".
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	mant, exp, hasExp := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += "."
	}
	if hasExp {
		return mant + "E" + exp
	}
	return mant
}

// Record is one entity type and its parameters. Simple instances have one
// record; complex instances have several.
type Record struct {
	Type string
	Args []Value
}

// Arg returns parameter i or Unset.
func (r Record) Arg(i int) Value {
	if i < 0 || i >= len(r.Args) {
		return Unset
	}
	return r.Args[i]
}

// Entity is an instance of the DATA section.
type Entity struct {
	ID      int
	Records []Record
	Complex bool
}

// Type returns the type of a simple instance, or "" for complex ones.
func (e *Entity) Type() string {
	if e.Complex || len(e.Records) == 0 {
		return ""
	}
	return e.Records[0].Type
}

// Record returns the record of the given type.
func (e *Entity) Record(typ string) (Record, bool) {
	for _, r := range e.Records {
		if r.Type == typ {
			return r, true
		}
	}
	return Record{}, false
}

// Is reports whether any record of e has the given type.
func (e *Entity) Is(typ string) bool {
	_, ok := e.Record(typ)
	return ok
}

// File is an exchange structure.
type File struct {
	Header   []Record
	entities map[int]*Entity
	order    []int
	next     int
}

// NewFile returns an empty exchange structure.
func NewFile() *File {
	return &File{entities: make(map[int]*Entity), next: 1}
}

// SetHeader replaces the header records.
func (f *File) SetHeader(records ...Record) {
	f.Header = records
}

// HeaderRecord returns the header record of the given type.
func (f *File) HeaderRecord(typ string) (Record, bool) {
	for _, r := range f.Header {
		if r.Type == typ {
			return r, true
		}
	}
	return Record{}, false
}

// Add appends a simple instance and returns its id.
func (f *File) Add(typ string, args ...Value) int {
	return f.insert(&Entity{Records: []Record{{Type: typ, Args: args}}})
}

// AddComplex appends a complex instance and returns its id. Records are
// written in alphabetical order.
func (f *File) AddComplex(records ...Record) int {
	rs := slices.Clone(records)
	slices.SortFunc(rs, func(a, b Record) int { return strings.Compare(a.Type, b.Type) })
	return f.insert(&Entity{Records: rs, Complex: true})
}

func (f *File) insert(e *Entity) int {
	e.ID = f.next
	f.next++
	f.entities[e.ID] = e
	f.order = append(f.order, e.ID)
	return e.ID
}

// Get returns instance id.
func (f *File) Get(id int) (*Entity, bool) {
	e, ok := f.entities[id]
	return e, ok
}

// Len returns the number of instances.
func (f *File) Len() int {
	return len(f.order)
}

// Entities returns every instance in file order.
func (f *File) Entities() []*Entity {
	out := make([]*Entity, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.entities[id])
	}
	return out
}

// WriteTo serializes the exchange structure.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countWriter{w: bw}
	fmt.Fprint(cw, "ISO-10303-21;\nHEADER;\n")
	for _, r := range f.Header {
		fmt.Fprintf(cw, "%s;\n", formatRecord(r))
	}
	fmt.Fprint(cw, "ENDSEC;\nDATA;\n")
	for _, e := range f.Entities() {
		if e.Complex {
			parts := make([]string, len(e.Records))
			for i, r := range e.Records {
				parts[i] = formatRecord(r)
			}
			fmt.Fprintf(cw, "#%d=( %s );\n", e.ID, strings.Join(parts, " "))
			continue
		}
		fmt.Fprintf(cw, "#%d=%s;\n", e.ID, formatRecord(e.Records[0]))
	}
	fmt.Fprint(cw, "ENDSEC;\nEND-ISO-10303-21;\n")
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

func formatRecord(r Record) string {
	return r.Type + List(r.Args...).String()
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// Parse errors.
var (
	ErrSyntax    = errors.New("syntax error")
	ErrNoHeader  = errors.New("missing HEADER section")
	ErrNoData    = errors.New("missing DATA section")
	ErrDuplicate = errors.New("duplicate instance id")
)

// Parse reads an exchange structure.
func Parse(r io.Reader) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange structure; %w", err)
	}
	p := &parser{lex: lexer{src: string(src), line: 1}}
	return p.file()
}

type tokKind int

const (
	tEOF tokKind = iota
	tKeyword
	tRef
	tInt
	tReal
	tString
	tEnum
	tUnset
	tDerived
	tLParen
	tRParen
	tComma
	tSemi
	tEq
)

type token struct {
	kind tokKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("line %d: unterminated comment; %w", l.line, ErrSyntax)
			}
			l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tEOF, line: l.line}, nil
	}
	start, line := l.pos, l.line
	c := l.src[l.pos]
	single := map[byte]tokKind{'(': tLParen, ')': tRParen, ',': tComma, ';': tSemi, '=': tEq, '$': tUnset, '*': tDerived}
	if k, ok := single[c]; ok {
		l.pos++
		return token{kind: k, text: string(c), line: line}, nil
	}
	switch {
	case c == '#':
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == start+1 {
			return token{}, fmt.Errorf("line %d: bad instance name; %w", line, ErrSyntax)
		}
		return token{kind: tRef, text: l.src[start+1 : l.pos], line: line}, nil
	case c == '\'':
		var b strings.Builder
		l.pos++
		for {
			if l.pos >= len(l.src) {
				return token{}, fmt.Errorf("line %d: unterminated string; %w", line, ErrSyntax)
			}
			ch := l.src[l.pos]
			if ch == '\'' {
				if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
					b.WriteByte('\'')
					l.pos += 2
					continue
				}
				l.pos++
				break
			}
			if ch == '\n' {
				l.line++
			}
			b.WriteByte(ch)
			l.pos++
		}
		return token{kind: tString, text: b.String(), line: line}, nil
	case c == '.' && l.pos+1 < len(l.src) && isAlpha(l.src[l.pos+1]):
		end := strings.IndexByte(l.src[l.pos+1:], '.')
		if end < 0 {
			return token{}, fmt.Errorf("line %d: unterminated enumeration; %w", line, ErrSyntax)
		}
		l.pos += end + 2
		return token{kind: tEnum, text: l.src[start+1 : l.pos-1], line: line}, nil
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.number()
	case isAlpha(c) || c == '!' || c == '_':
		l.pos++
		for l.pos < len(l.src) {
			ch := l.src[l.pos]
			if !isAlpha(ch) && !isDigit(ch) && ch != '_' && ch != '-' {
				break
			}
			l.pos++
		}
		return token{kind: tKeyword, text: l.src[start:l.pos], line: line}, nil
	}
	return token{}, fmt.Errorf("line %d: unexpected character %q; %w", line, c, ErrSyntax)
}

func (l *lexer) number() (token, error) {
	start, line := l.pos, l.line
	isReal := false
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	digits := 0
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
		digits++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isReal = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
			digits++
		}
	}
	if digits == 0 {
		return token{}, fmt.Errorf("line %d: bad number; %w", line, ErrSyntax)
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'E' || l.src[l.pos] == 'e') {
		isReal = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '-' || l.src[l.pos] == '+') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	if isReal {
		return token{kind: tReal, text: text, line: line}, nil
	}
	return token{kind: tInt, text: text, line: line}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }

type parser struct {
	lex lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(k tokKind, what string) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != k {
		return fmt.Errorf("line %d: expected %s, found %q; %w", p.tok.line, what, p.tok.text, ErrSyntax)
	}
	return nil
}

func (p *parser) keyword(want string) error {
	if err := p.expect(tKeyword, want); err != nil {
		return err
	}
	if p.tok.text != want {
		return fmt.Errorf("line %d: expected %s, found %s; %w", p.tok.line, want, p.tok.text, ErrSyntax)
	}
	return p.expect(tSemi, "';'")
}

func (p *parser) file() (*File, error) {
	f := NewFile()
	if err := p.keyword("ISO-10303-21"); err != nil {
		return nil, err
	}
	if err := p.expect(tKeyword, "HEADER"); err != nil {
		return nil, err
	}
	if p.tok.text != "HEADER" {
		return nil, ErrNoHeader
	}
	if err := p.expect(tSemi, "';'"); err != nil {
		return nil, err
	}
	for {
		if err := p.expect(tKeyword, "header entity"); err != nil {
			return nil, err
		}
		if p.tok.text == "ENDSEC" {
			if err := p.expect(tSemi, "';'"); err != nil {
				return nil, err
			}
			break
		}
		r, err := p.record(p.tok.text)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tSemi, "';'"); err != nil {
			return nil, err
		}
		f.Header = append(f.Header, r)
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tKeyword || p.tok.text != "DATA" {
		return nil, ErrNoData
	}
	// DATA may carry a section name and schema list in newer editions.
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tLParen {
		if _, err := p.list(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tSemi {
		return nil, fmt.Errorf("line %d: expected ';' after DATA; %w", p.tok.line, ErrSyntax)
	}

	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tKeyword && p.tok.text == "ENDSEC" {
			if err := p.expect(tSemi, "';'"); err != nil {
				return nil, err
			}
			break
		}
		if p.tok.kind != tRef {
			return nil, fmt.Errorf("line %d: expected instance name, found %q; %w", p.tok.line, p.tok.text, ErrSyntax)
		}
		id, _ := strconv.Atoi(p.tok.text)
		if _, dup := f.entities[id]; dup {
			return nil, fmt.Errorf("line %d: #%d; %w", p.tok.line, id, ErrDuplicate)
		}
		if err := p.expect(tEq, "'='"); err != nil {
			return nil, err
		}
		e, err := p.instance()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tSemi, "';'"); err != nil {
			return nil, err
		}
		e.ID = id
		f.entities[id] = e
		f.order = append(f.order, id)
		if id >= f.next {
			f.next = id + 1
		}
	}
	return f, nil
}

func (p *parser) instance() (*Entity, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch p.tok.kind {
	case tKeyword:
		r, err := p.record(p.tok.text)
		if err != nil {
			return nil, err
		}
		return &Entity{Records: []Record{r}}, nil
	case tLParen:
		e := &Entity{Complex: true}
		for {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind == tRParen {
				break
			}
			if p.tok.kind != tKeyword {
				return nil, fmt.Errorf("line %d: expected entity type in complex instance; %w", p.tok.line, ErrSyntax)
			}
			r, err := p.record(p.tok.text)
			if err != nil {
				return nil, err
			}
			e.Records = append(e.Records, r)
		}
		if len(e.Records) == 0 {
			return nil, fmt.Errorf("line %d: empty complex instance; %w", p.tok.line, ErrSyntax)
		}
		return e, nil
	}
	return nil, fmt.Errorf("line %d: expected entity, found %q; %w", p.tok.line, p.tok.text, ErrSyntax)
}

// record parses the parameter list following an entity type keyword.
func (p *parser) record(typ string) (Record, error) {
	if err := p.expect(tLParen, "'('"); err != nil {
		return Record{}, err
	}
	args, err := p.list()
	if err != nil {
		return Record{}, err
	}
	return Record{Type: typ, Args: args}, nil
}

// list parses parameters up to the closing parenthesis; the opening one has
// been consumed.
func (p *parser) list() ([]Value, error) {
	var out []Value
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tRParen && len(out) == 0 {
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tComma:
		case tRParen:
			return out, nil
		default:
			return nil, fmt.Errorf("line %d: expected ',' or ')', found %q; %w", p.tok.line, p.tok.text, ErrSyntax)
		}
	}
}

func (p *parser) value() (Value, error) {
	t := p.tok
	switch t.kind {
	case tUnset:
		return Unset, nil
	case tDerived:
		return Derived, nil
	case tInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %v; %w", t.line, err, ErrSyntax)
		}
		return Int(n), nil
	case tReal:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %v; %w", t.line, err, ErrSyntax)
		}
		return Real(f), nil
	case tString:
		return Str(t.text), nil
	case tEnum:
		return Enum(t.text), nil
	case tRef:
		id, _ := strconv.Atoi(t.text)
		return Ref(id), nil
	case tLParen:
		vs, err := p.list()
		if err != nil {
			return Value{}, err
		}
		return List(vs...), nil
	case tKeyword:
		if err := p.expect(tLParen, "'('"); err != nil {
			return Value{}, err
		}
		vs, err := p.list()
		if err != nil {
			return Value{}, err
		}
		if len(vs) != 1 {
			return Value{}, fmt.Errorf("line %d: typed parameter %s takes one value; %w", t.line, t.text, ErrSyntax)
		}
		return Typed(t.text, vs[0]), nil
	}
	return Value{}, fmt.Errorf("line %d: unexpected %q; %w", t.line, t.text, ErrSyntax)
}
