// Package youtube implements the upload stage with the YouTube Data API v3.
//
// Authentication uses an OAuth2 refresh token (client id, secret and token
// from config or the .env file). Title and description come from templates
// rendered by RenderMetadata.
package youtube
