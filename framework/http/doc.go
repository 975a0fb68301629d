// Package http provides the request and response helpers used by the
// framework's HTTP handlers.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	key := req.RouteParam("key") // "config%2Fdb" arrives as "config/db"
//
//	want, filter, err := req.OptionalBool("resolved")
//	if err != nil {
//	    res.ValidationError(err.(*validation.Errors)) // ?resolved=maybe
//	    return
//	}
//	if filter {
//	    // keep entries whose Resolved == want
//	}
//
// # Response
//
//	res := gohttp.NewResponse(w)
//
//	res.Success(c.Entries())                  // 200 {"data": [...]}
//	res.NotFound(err.Error())                 // 404 {"message": "..."}
//	res.Conflict(err.Error(), cyc.Path)       // 409 {"message": "...", "data": ["a", "b", "a"]}
//	res.ServerError(err.Error())              // 500 {"message": "..."}
//	res.ValidationError(v.Errors())           // 422 {"errors": {"key": ["..."]}}
package http
