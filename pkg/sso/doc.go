// Package sso is the authentication boundary of the gateway. It turns an
// external assertion, an OpenID Connect callback or a set of trusted proxy
// headers, into an AuthEvent plus an initial UserDraft and hands both to the
// identity customizer chain. Everything past this package is
// provider-agnostic.
package sso
