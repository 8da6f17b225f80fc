package schema

import "fmt"

// Service and Method are the RPC-surface stubs SPEC_FULL.md adds:
// declaration-level reflection only (name, methods, request/response
// type names, streaming flags). Actually invoking an RPC, and the
// wire-level request/response framing that would require, are outside
// this module's scope (spec section 1 marks RPC/service plumbing an
// external collaborator); a Service here exists only so a schema
// ingested from the JSON dialect round-trips its "methods" section
// without data loss.
type Service struct {
	Base

	methodNames []string
	methods     map[string]*Method
}

// NewService constructs an empty Service named name.
func NewService(name string) *Service {
	return &Service{Base: newBase(name)}
}

// Method returns the named method, if any.
func (s *Service) Method(name string) (*Method, bool) {
	m, ok := s.methods[name]
	return m, ok
}

// Methods returns the service's methods in declaration order. The
// returned slice must not be mutated by callers.
func (s *Service) Methods() []*Method {
	out := make([]*Method, len(s.methodNames))
	for i, n := range s.methodNames {
		out[i] = s.methods[n]
	}
	return out
}

// AddMethod installs m, rejecting a duplicate name.
func (s *Service) AddMethod(m *Method) error {
	if _, exists := s.methods[m.Name()]; exists {
		return fmt.Errorf("%w: method %q already defined in service %q", ErrNameConflict, m.Name(), s.FullName())
	}
	if s.methods == nil {
		s.methods = map[string]*Method{}
	}
	s.methods[m.Name()] = m
	s.methodNames = append(s.methodNames, m.Name())
	return nil
}

func (s *Service) resolve(root *Root) error {
	s.Base.markResolved()
	return nil
}

// ToJSON renders this Service back to the dialect AddJSON consumes.
func (s *Service) ToJSON() (*orderedJSON, bool) {
	out := newOrderedJSON()
	if len(s.options) > 0 {
		out.set("options", s.options)
	}
	if len(s.methodNames) > 0 {
		methodsOut := newOrderedJSON()
		for _, n := range s.methodNames {
			methodsOut.set(n, s.methods[n].toJSON())
		}
		out.set("methods", methodsOut)
	}
	return out, true
}

// Method is one RPC declaration within a Service.
type Method struct {
	Base

	requestType    string
	responseType   string
	requestStream  bool
	responseStream bool
}

// NewMethod constructs a Method declaration.
func NewMethod(name, requestType, responseType string, requestStream, responseStream bool) *Method {
	return &Method{
		Base:           newBase(name),
		requestType:    requestType,
		responseType:   responseType,
		requestStream:  requestStream,
		responseStream: responseStream,
	}
}

// RequestType returns the (unresolved) request message type name.
func (m *Method) RequestType() string { return m.requestType }

// ResponseType returns the (unresolved) response message type name.
func (m *Method) ResponseType() string { return m.responseType }

// RequestStream and ResponseStream report the method's streaming shape.
func (m *Method) RequestStream() bool  { return m.requestStream }
func (m *Method) ResponseStream() bool { return m.responseStream }

func (m *Method) toJSON() *orderedJSON {
	out := newOrderedJSON()
	out.set("requestType", m.requestType)
	out.set("responseType", m.responseType)
	if m.requestStream {
		out.set("requestStream", true)
	}
	if m.responseStream {
		out.set("responseStream", true)
	}
	if len(m.options) > 0 {
		out.set("options", m.options)
	}
	return out
}
