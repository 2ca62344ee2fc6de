// Package crawler defines the domain model shared by the scrapper engine: jobs,
// site definitions, resource descriptors, page markers, the storage contracts
// implemented by the persistence backends, and the error taxonomy.
package crawler
