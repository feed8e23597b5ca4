// Package pagination drives cursor-based searches of the user directory.
//
// A search requests pages of at most the session's maxObjectPerCall rows.
// A page with status OK means more rows may follow; EOD ends the search
// after its rows are reduced. Any other status fails the search.
package pagination
