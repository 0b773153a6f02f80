// Package actionlog provides ActionLog implementations: a process-local
// in-memory store for tests and single-process runs, and (in the mysql
// subpackage) a durable store for experiment replay and post-hoc analytics.
package actionlog
