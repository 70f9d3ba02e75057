// Package api serves the marketplace over HTTP/JSON.
//
// Every response uses a single envelope: successes carry
// {"success":true,"data":...} with an optional message, failures carry
// {"success":false,"code":...,"message":...} plus a field-keyed errors
// map for validation problems. Routing uses method-qualified
// http.ServeMux patterns from the routepath subpackage.
//
// Handlers stay thin: they decode input, resolve the caller from the
// request context, call domain constructors and storage, and translate
// errors through the platform errors package. Authentication accepts a
// bearer access token or the access cookie; refresh and logout also
// read the refresh cookie so browser clients never handle raw tokens.
package api
