// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

// LibraryPath is the pseudo file path of ambient global declarations
// (the standard lib, DOM and Node typings).
const LibraryPath = "lib"

// ambientGlobals are value names declared by the default lib and the common
// runtime typings. References to them resolve to the library boundary.
var ambientGlobals = map[string]bool{
	// ECMAScript
	"globalThis": true, "Object": true, "Function": true, "Array": true,
	"String": true, "Number": true, "Boolean": true, "Symbol": true,
	"BigInt": true, "Math": true, "JSON": true, "Date": true, "RegExp": true,
	"Error": true, "TypeError": true, "RangeError": true, "SyntaxError": true,
	"Promise": true, "Map": true, "Set": true, "WeakMap": true, "WeakSet": true,
	"WeakRef": true, "Reflect": true, "Proxy": true, "Intl": true,
	"ArrayBuffer": true, "SharedArrayBuffer": true, "DataView": true,
	"Int8Array": true, "Uint8Array": true, "Uint8ClampedArray": true,
	"Int16Array": true, "Uint16Array": true, "Int32Array": true,
	"Uint32Array": true, "Float32Array": true, "Float64Array": true,
	"BigInt64Array": true, "BigUint64Array": true, "Atomics": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
	"decodeURIComponent": true, "eval": true,

	// Host environments
	"console": true, "setTimeout": true, "clearTimeout": true,
	"setInterval": true, "clearInterval": true, "setImmediate": true,
	"clearImmediate": true, "queueMicrotask": true, "structuredClone": true,
	"fetch": true, "atob": true, "btoa": true, "URL": true,
	"URLSearchParams": true, "TextEncoder": true, "TextDecoder": true,
	"AbortController": true, "AbortSignal": true, "Event": true,
	"EventTarget": true, "performance": true, "crypto": true,
	"window": true, "document": true, "navigator": true, "location": true,
	"localStorage": true, "sessionStorage": true, "alert": true,
	"requestAnimationFrame": true, "cancelAnimationFrame": true,
	"Headers": true, "Request": true, "Response": true, "Blob": true,
	"FormData": true, "WebSocket": true, "Worker": true,

	// Node typings
	"process": true, "Buffer": true, "require": true, "module": true,
	"exports": true, "__dirname": true, "__filename": true, "global": true,
}

// IsAmbientGlobal reports whether name is a global declared by the default
// lib or the common runtime typings.
func IsAmbientGlobal(name string) bool {
	return ambientGlobals[name]
}
