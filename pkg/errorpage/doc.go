// Package errorpage turns uncaught failures into HTTP responses.
//
// Every failure first marks the request's unit of work rollback-only and is
// classified into a status code. Callers that do not explicitly accept HTML
// get that status with an empty body. Browsers get the error.ftl template of
// their realm's login theme, rendered in the resolved locale. When anything
// on that path fails the answer degrades to a bare 500.
//
// Templates can rely on the attributes statusCode, realm, url, locale and
// message. msg and properties are present unless building them failed.
package errorpage
