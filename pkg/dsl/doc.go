/*
Package dsl provides a fluent builder for constructing graph definitions in Go.

	b := dsl.New().Start("fetch")
	b.Add("fetch").Do("fetch_data").Go("check")
	b.Route("check").
		Branch("retry", "status", "!=", "ok", "fetch").
		Terminal()

	def, err := b.Build()

Build validates the result and fails only on error-severity issues.
*/
package dsl
