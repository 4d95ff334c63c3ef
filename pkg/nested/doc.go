// Package nested reads and writes values in the processed-params tree using
// hierarchical field names. Paths may be written in dotted form
// ("address.city", "tags.0") or subscript form ("address[city]", "tags[0]");
// both are accepted on input while the Store notation decides how names are
// produced on output.
package nested
