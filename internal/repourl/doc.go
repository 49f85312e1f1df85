// Package repourl turns a human-typed repository identifier into a
// RepositoryLocator.
//
// Accepted identifiers:
//
//	https://gitlab.com/group/project
//	https://gitlab.com/group/project/-/tree/main/src
//	https://github.com/owner/repo/tree/v1.2.0/docs
//	git@gitlab.example.com:group/project.git
//	https://gitlab.example.com/group/project.git
//
// SSH identifiers are rewritten to an HTTP(S) URL on the same host before the
// path is split into segments. The first two segments are the namespace and
// the project; everything else is left to the reference resolver.
package repourl
