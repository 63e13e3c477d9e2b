// Package theme loads themes from a file system.
//
// A theme lives under <name>/<type>/ and contains
//
//	theme.properties                 java-style properties; "parent" names the theme it extends
//	messages/messages.<lang>.toml    flat key = "value" catalogs, one per language
//	<template>                       html/template sources, e.g. error.ftl
//
// Themes extend their parent: properties and messages of the child override
// the parent's, templates are looked up in the child first. The themes
// "base" and "keycloak" are embedded and used unless another directory is
// configured.
package theme
