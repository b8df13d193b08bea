// Package eru scrapes the public licence registry of the Czech energy
// regulator (Energetický regulační úřad).
//
// Every scraping method has the same structure:
//  1. turn the input (licence id, business) into a request.
//  2. make the request through the shared rate limited client.
//  3. check the response (status, body) and turn it into a goquery
//     document or a roster.
//
// Interpreting a licence page is left to package licence, this package only
// moves bytes.
package eru
