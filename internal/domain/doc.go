// Package domain defines the entities of the learning graph and their
// validation rules: concepts, the prerequisite edges between them, curated
// paths, and per-user progress records. Nothing here touches storage or
// transport; the store and service layers depend on this package, never the
// other way around.
package domain
