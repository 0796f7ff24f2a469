// Package pbxclient provides the primary entry point for constructing a
// FreePBX admin API client that implements the freepbx.Client interface.
//
// It layers configuration loading, token caching and the HTTP transport on
// top of the types and interfaces defined in the freepbx package. Most
// applications import pbxclient to build a client, then use the returned
// freepbx.Client for the typed accessors or the raw GraphQL and REST calls.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
//	  "github.com/hyenergysolutions/freepbx-go/pkg/pbxclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := pbxclient.New(ctx, &freepbx.Config{
//	    BaseURL:      "http://192.168.1.100:83",
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  extensions, err := cli.Extensions(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = extensions
//	}
//
// # Environment
//
// LoadConfig reads FREEPBX_URL, FREEPBX_CLIENT_ID, FREEPBX_CLIENT_SECRET and
// the optional tuning variables from the environment, a .env file and an
// optional YAML config file. NewFromEnv combines LoadConfig and New.
//
// # Shared tokens
//
// Setting FREEPBX_CACHE_TYPE=nats stores the bearer token in a JetStream
// key/value bucket behind a local memory cache, so that several processes
// reuse one token. Close the cache when done with it:
//
//	if closer, ok := cfg.Cache.(interface{ Close() }); ok {
//	  defer closer.Close()
//	}
package pbxclient
