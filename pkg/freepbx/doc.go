// Package freepbx provides types, interfaces, and helpers for working with
// the FreePBX administrative API (the "API" module exposing GraphQL and REST
// under /admin/api/api).
//
// # Overview
//
// The freepbx package defines the domain types (Extension, RingGroup, CDR,
// CallFlow, Queue), the Client interface, the configuration struct, the
// error taxonomy and the cache and interceptor abstractions. A concrete
// client is built by the pbxclient package:
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
//	  cli, err := pbxclient.New(ctx, &freepbx.Config{
//	    BaseURL:      "http://192.168.1.100:83",
//	    ClientID:     "my-app",
//	    ClientSecret: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  extensions, err := cli.Extensions(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = extensions
//	}
//
// # Errors
//
// Every failed call returns an *Error. Its Kind tells apart a token
// failure, a GraphQL transport failure, a GraphQL validation failure (the
// server answered with an errors array) and a REST failure:
//
//	if errors.Is(err, freepbx.ErrGraphQLValidation) {
//	  log.Println(err.(*freepbx.Error).Messages())
//	}
//
// Transport failures evict the cached token, so the next call
// authenticates again. Validation failures keep it.
//
// # Caching
//
// The bearer token is kept in a Cache. MemoryCache is the default;
// NATSKVCache shares the token between processes through a JetStream
// key/value bucket, and CacheChain layers both.
package freepbx
