// Package bikeindex is the client for the Bike Index HTTP API.
//
// Endpoints are pure descriptors built by constructor functions such as
// FetchBike and UploadImage. A Client resolves a descriptor against the
// configured host, signs it with the current bearer token when the
// descriptor asks for it, and decodes the declared response type:
//
//	bike, err := bikeindex.AuthenticatedGet(ctx, client, bikeindex.FetchBike(42))
//
// Large payloads go through BackgroundUploader, which hands a file-backed
// request to a driven.BackgroundTransport and applies the result to local
// storage when the transport reports completion.
package bikeindex
