/*
Package codec decodes response frames emitted by a line-delimited worker process.

Workers are free to choose a different encoding per response line, usually by
payload shape: JSON for nested results, TOON for tabular results, and plain
"key: value" text for small flat results. Decode tries each format in a fixed
order and returns the first successful parse:

1. A strict JSON object parse.
2. TOON (token-oriented object notation), a compact tabular encoding. A TOON
payload declares arrays with a "key[N]{col1,col2}:" or "key[N]:" header
followed by indented rows; a frame with no such header is not considered TOON.
3. A permissive line-oriented "key: value" parser which infers booleans and
numbers from the text.

The package also provides a TOON encoder so that request envelopes can be sent
in TOON form to workers that accept it.
*/
package codec
