// Package schema type-checks state against a declared input schema.
//
// A schema maps state keys to type strings: "string", "int", "float", "bool",
// "object", "any", or a list such as "[string]". A trailing "?" makes the key
// optional:
//
//	s, err := schema.Parse(map[string]string{
//	    "code":      "string",
//	    "iteration": "int?",
//	    "tags":      "[string]?",
//	})
//
//	if err := s.Check(state); err != nil {
//	    for _, fe := range schema.FieldErrors(err) { ... }
//	}
package schema
