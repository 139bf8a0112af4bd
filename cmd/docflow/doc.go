// Command docflow runs the document question-answering service: an HTTP
// API that plans retrieval for each question, iteratively refines the
// retrieved evidence, and synthesizes cited answers.
package main
