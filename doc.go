// Command github-graphql-proxy serves the GitHub GraphQL API from a local endpoint.
//
// On start it loads the environment, introspects the upstream with the token from GITHUB_TOKEN,
// composes the remote schema into a local executable schema and serves it at http://localhost:4070/
// together with a GraphQL Playground. Introspection queries are answered locally, every other
// root field is forwarded to the upstream with the token attached.
//
// Configuration is read from flags, GHPROXY_ prefixed environment variables and an optional yaml file:
//
//	github-graphql-proxy --port 4070 --log-format json
//	github-graphql-proxy print-schema > github.graphql
package main
