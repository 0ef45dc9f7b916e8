// Package respserver serves the store over the Redis serialization protocol
// (RESP2), so redis-cli and Redis client libraries can read and write
// entries.
//
// Supported commands:
//
//   - PING [message], QUIT, COMMAND
//   - GET key, SET key value, DEL key [key ...]
//   - EXISTS key [key ...], MGET key [key ...]
//   - KEYS pattern, DBSIZE
//
// SET values must be JSON documents. Domain errors are reported as
// "-ERR <code> <message>".
package respserver
