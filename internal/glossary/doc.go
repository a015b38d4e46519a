// Package glossary loads term glossaries and checks translations against
// them.
//
// A glossary is a CSV file whose header row names languages. The column
// matching the source language holds the terms; every other column holds
// the required translation of that term in its language. Glossaries can be
// read from uploaded files or fetched over HTTP; fetched glossaries are
// cached per URL and source language.
package glossary
