// Package registry deduplicates experiment records onto their keys and
// decides which of them still need to run.
//
// Many raw combinations collapse onto the same key once override rules have
// been applied; the Registry keeps exactly one record per key according to
// its Policy. Pending then drops every record whose output directory already
// holds the completion marker, cleaning up the large artifact those finished
// runs left behind, so that re-running a sweep resumes where it stopped.
package registry
