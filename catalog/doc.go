// Package catalog resolves resource locators against the origin catalog.
//
// A ResourceLocator (language, organization, resource type, book) is turned
// into a CatalogEntry naming the repository, release, and its ingredient
// files. Resolution is cached for hours under the "catalog" content class;
// on a miss the origin catalog-search API is called through a rate limiter
// and the "origin-api" circuit breaker, and the response is schema-validated
// before use.
//
// A locator that matches nothing yields errors.ErrResourceNotFound, which is
// classified invalid and never retried.
package catalog
