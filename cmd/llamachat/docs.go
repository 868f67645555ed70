package main

// General API documentation for swaggo. The generated document lives in
// internal/httpapi/docs.
//
// @title           llamachat API
// @version         1.0
// @description     Chat completions over locally hosted llama.cpp models.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
