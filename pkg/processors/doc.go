// Package processors ships the built-in stage processors and registers them
// under their type tags.
//
// Constraints other than required pass on empty values. Callback processors
// accept a few plain function shapes (see AsFilterFunc, AsCheckFunc and
// AsConvertFunc) so callbacks can be registered by name and referenced from
// definitions.
package processors
