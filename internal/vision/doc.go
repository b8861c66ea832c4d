// Package vision defines the contract shared by every vision tool: the Tool
// interface and its embedded ToolBase, the Result envelope with its tagged
// Value data and overlay Graphic primitives, flat Params configuration, and
// the type Registry.
//
// Tools never panic or return errors across the pipeline boundary. Run wraps
// Execute and converts every outcome into a Result whose Failure field
// classifies what went wrong.
package vision
