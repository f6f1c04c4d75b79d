// Package errors provides the error taxonomy for the grant-processing core.
//
// It is derived from `github.com/go-errors/errors` and adds gRPC status
// codes, HTTP status mapping, public messages, and RFC 6749 error codes,
// as well as stack-traces captured at the point of creation.
//
// The taxonomy distinguishes four kinds of failure:
//
//   - configuration errors: a grant was constructed without a required
//     capability. Fatal at startup, never user visible.
//   - invalid_request: malformed input from the caller.
//   - invalid_grant / invalid_scope: a semantically invalid grant. The
//     sub-cause is intentionally not distinguishable from the outside.
//   - server_error: the persistence provider violated its contract.
//
// Each kind has a constructor and an Is predicate, so transport layers can
// map a returned error to an RFC 6749 error response without string
// matching:
//
//	if errors.IsInvalidGrant(err) {
//	    writeOAuthError(w, errors.OAuthCode(err), errors.PublicMessage(err))
//	}
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"reflect"
	"runtime"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/runtime/protoiface"
)

// The maximum number of stackframes on any error.
var MaxStackDepth = 50

// RFC 6749 §5.2 error codes carried by errors in this package.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidGrant         = "invalid_grant"
	CodeInvalidScope         = "invalid_scope"
	CodeInvalidClient        = "invalid_client"
	CodeUnsupportedGrantType = "unsupported_grant_type"
	CodeServerError          = "server_error"
)

// Error is an error with an attached stacktrace and OAuth response
// metadata. It can be used wherever the builtin error interface is
// expected.
type Error struct {
	Err    error
	stack  []uintptr
	frames []StackFrame

	// gRPC status code to associate with an error response.
	code codes.Code

	// RFC 6749 error code, empty for errors that never reach a client.
	oauthCode string

	// Error details which gRPC returns the client.
	details []protoiface.MessageV1

	// HTTP status code to associate with an error response.
	httpStatusCode int

	// Error message to return to the client.
	publicMessage string
}

// New makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that
// called New.
func New(e interface{}) *Error {
	return newError(e, codes.Unknown, "", 3)
}

// NewC makes an Error with a gRPC status code defined.
func NewC(e interface{}, code codes.Code) *Error {
	return newError(e, code, "", 3)
}

// Errorf creates a new error with the given message. You can use it as a
// drop-in replacement for fmt.Errorf() to provide descriptive errors in
// return values.
func Errorf(format string, a ...interface{}) *Error {
	return newError(fmt.Errorf(format, a...), codes.Unknown, "", 3)
}

// Configuration creates an error indicating that a grant type was
// constructed without a required capability or parameter. These are fatal
// at startup and carry no OAuth error code.
func Configuration(format string, a ...interface{}) *Error {
	return newError(fmt.Errorf(format, a...), codes.FailedPrecondition, "", 3)
}

// InvalidRequest creates an error for malformed caller input. The
// description is safe to return to the client.
func InvalidRequest(description string) *Error {
	err := newError(fmt.Errorf("invalid_request: %s", description), codes.InvalidArgument, CodeInvalidRequest, 3)
	err.publicMessage = description
	return err
}

// InvalidClient creates an error for failed client authentication. The
// gRPC code maps to a 401 response as RFC 6749 requires.
func InvalidClient(description string) *Error {
	err := newError(fmt.Errorf("invalid_client: %s", description), codes.Unauthenticated, CodeInvalidClient, 3)
	err.publicMessage = description
	return err
}

// InvalidGrant creates an error for a semantically invalid authorization
// grant. Callers should use the same description for every sub-cause they
// want to be indistinguishable from the outside.
func InvalidGrant(description string) *Error {
	err := newError(fmt.Errorf("invalid_grant: %s", description), codes.InvalidArgument, CodeInvalidGrant, 3)
	err.publicMessage = description
	return err
}

// InvalidScope creates an error for a scope the provider refused to grant.
func InvalidScope(description string) *Error {
	err := newError(fmt.Errorf("invalid_scope: %s", description), codes.InvalidArgument, CodeInvalidScope, 3)
	err.publicMessage = description
	return err
}

// UnsupportedGrantType creates an error for a grant_type the server does
// not handle.
func UnsupportedGrantType(grantType string) *Error {
	err := newError(fmt.Errorf("unsupported_grant_type: %s", grantType), codes.InvalidArgument, CodeUnsupportedGrantType, 3)
	err.publicMessage = "unsupported grant type"
	return err
}

// ServerError creates an error for a provider-contract violation or other
// internal fault. The wrapped cause is logged but never returned to the
// client; the public message is always generic.
func ServerError(e interface{}) *Error {
	err := newError(e, codes.Internal, CodeServerError, 3)
	err.publicMessage = "internal server error"
	return err
}

func newError(e interface{}, code codes.Code, oauthCode string, skip int) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(skip, stack[:])
	return &Error{
		Err:       err,
		stack:     stack[:length],
		code:      code,
		oauthCode: oauthCode,
	}
}

// Wrap makes an Error from the given value. If that value is already an
// *Error it is returned unchanged, preserving its classification. The skip
// parameter indicates how far up the stack to start the stacktrace. 0 is
// from the current call, 1 from its caller, etc.
func Wrap(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}

	var err error
	switch e := e.(type) {
	case *Error:
		return e
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  codes.Unknown,
	}
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	return err.Err.Error()
}

// Stack returns the callstack formatted the same way that go does in
// runtime/debug.Stack().
func (err *Error) Stack() []byte {
	buf := bytes.Buffer{}
	for _, frame := range err.StackFrames() {
		buf.WriteString(frame.String())
	}
	return buf.Bytes()
}

// ErrorStack returns a string that contains both the error message and the
// callstack.
func (err *Error) ErrorStack() string {
	return err.TypeName() + " " + err.Error() + "\n" + string(err.Stack())
}

// StackFrames returns an array of frames containing information about the
// stack.
func (err *Error) StackFrames() []StackFrame {
	if err.frames == nil {
		err.frames = make([]StackFrame, len(err.stack))
		for i, pc := range err.stack {
			err.frames[i] = NewStackFrame(pc)
		}
	}
	return err.frames
}

// TypeName returns the type of this error. e.g. *errors.stringError.
func (err *Error) TypeName() string {
	return reflect.TypeOf(err.Err).String()
}

// Unwrap the error (implements api for As function).
func (err *Error) Unwrap() error {
	return err.Err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// WithCode sets the gRPC status code associated with the error.
func (err *Error) WithCode(code codes.Code) *Error {
	err.code = code
	return err
}

// OAuthCode returns the RFC 6749 error code, or an empty string for errors
// that should never reach a client.
func (err *Error) OAuthCode() string {
	return err.oauthCode
}

// Details returns the gRPC details associated with the error.
func (err *Error) Details() []protoiface.MessageV1 {
	return err.details
}

// WithDetails sets the gRPC details associated with the error.
func (err *Error) WithDetails(details ...protoiface.MessageV1) *Error {
	err.details = append(err.details, details...)
	return err
}

// HTTPStatusCode returns the HTTP status code that should be returned to
// the client. If a code is set, it will be used, otherwise a default will
// be returned based on the gRPC code.
func (err *Error) HTTPStatusCode() int {
	if err.httpStatusCode != 0 {
		return err.httpStatusCode
	}
	switch err.code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Canceled, codes.Unknown, codes.Aborted, codes.Internal, codes.DataLoss:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// WithHTTPStatusCode sets the HTTP status code that should be returned to
// the client.
func (err *Error) WithHTTPStatusCode(code int) *Error {
	err.httpStatusCode = code
	return err
}

// PublicMessage returns the error string that should be returned to the
// client.
func (err *Error) PublicMessage() string {
	if err.publicMessage != "" {
		return err.publicMessage
	}
	return err.Error()
}

// WithPublicMessage sets the error string that should be returned to the
// client.
func (err *Error) WithPublicMessage(publicMessage string) *Error {
	err.publicMessage = publicMessage
	return err
}

// GRPCStatus returns a gRPC status object for the error.
func (err *Error) GRPCStatus() *status.Status {
	st := status.New(err.Code(), err.PublicMessage())
	if len(err.details) > 0 {
		st, _ = st.WithDetails(err.details...)
	}
	return st
}

// IsConfiguration reports whether err is a construction-time configuration
// error.
func IsConfiguration(err error) bool {
	return hasOAuthCode(err, "") && Code(err) == codes.FailedPrecondition
}

// IsInvalidRequest reports whether err maps to invalid_request.
func IsInvalidRequest(err error) bool {
	return hasOAuthCode(err, CodeInvalidRequest)
}

// IsInvalidGrant reports whether err maps to invalid_grant.
func IsInvalidGrant(err error) bool {
	return hasOAuthCode(err, CodeInvalidGrant)
}

// IsInvalidScope reports whether err maps to invalid_scope.
func IsInvalidScope(err error) bool {
	return hasOAuthCode(err, CodeInvalidScope)
}

// IsServerError reports whether err maps to server_error. Errors with no
// classification at all are also treated as server faults, so transports
// never leak an unclassified message.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(oauthCodedError); ok {
		return e.OAuthCode() == CodeServerError
	}
	return true
}

func hasOAuthCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(oauthCodedError); ok {
		return e.OAuthCode() == code
	}
	return false
}

// OAuthCode returns the RFC 6749 error code for an error. Unclassified
// errors report server_error.
func OAuthCode(err error) string {
	if e, ok := err.(oauthCodedError); ok && e.OAuthCode() != "" {
		return e.OAuthCode()
	}
	return CodeServerError
}

// PublicMessage returns the client-safe message for an error. Unclassified
// errors report a generic message.
func PublicMessage(err error) string {
	if e, ok := err.(publicError); ok {
		return e.PublicMessage()
	}
	return "internal server error"
}

// Code returns a gRPC status code for an error. If the error is nil, it
// returns codes.OK. If error exposes a `Code()` method, it is returned.
// Otherwise codes.Unknown is returned.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if e, ok := err.(codedError); ok {
		return e.Code()
	}
	return codes.Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is
// nil, it returns http.StatusOK. If error exposes a `HTTPStatusCode()`
// method, it is returned. Otherwise http.StatusInternalServerError is
// returned.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := err.(httpError); ok {
		return e.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

type codedError interface {
	Code() codes.Code
}

type httpError interface {
	HTTPStatusCode() int
}

type oauthCodedError interface {
	OAuthCode() string
}

type publicError interface {
	PublicMessage() string
}
