/*
 * Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
 * or more contributor license agreements. Licensed under the Apache License 2.0.
 * See the file "LICENSE" for details.
 */

/*
Package log is a drop-in wrapper around the logrus library.
It provides access to the same features, but also adds some debugging capabilities.
*/
package log
