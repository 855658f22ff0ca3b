/*
Package provider enumerates the roots a search walks.

	            +-------------+
	            |  Provider   |
	            |   (Roots)   |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|  System   |           | Static  |
	| home+vols |           |  list   |
	+-----------+           +---------+

🎯 Purpose:
- Resolves the home directory of the current user
- Lists mounted volumes once, at run start
- Lets callers replace both with an explicit list

🤝 Interfaces:
- Provider: returns the ordered list of roots
- Factory: builds a provider by name ("system", "static")

🔍 Example:

	p, err := provider.New(ctx, nil) // no explicit roots: home + volumes
	roots, err := p.Roots(ctx)
*/
package provider
