// Package oauthclient holds the OAuth client records of each realm.
//
// OAuthClient is the ClientProfile implementation handed to console
// handlers. Stores persist the ClientEntity form, mapped with copier.
package oauthclient
