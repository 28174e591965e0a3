package domain

// DefaultScene returns the built-in starting scene: a sky, a textured
// ground cylinder and a camera whose cursor spawns voxels on click.
// Every document is at version 1 and references its children as latest.
func DefaultScene() []Document {
	latest := func(ids ...string) map[string]int64 {
		children := make(map[string]int64, len(ids))
		for _, id := range ids {
			children[id] = LatestVersion
		}
		return children
	}
	node := func(name, typ string, children map[string]int64, props map[string]Value) Document {
		if props == nil {
			props = map[string]Value{}
		}
		return Document{
			Name:     name,
			ID:       Basename(name),
			Type:     typ,
			Version:  1,
			Children: children,
			Props:    props,
		}
	}

	return []Document{
		node("/root", "a-scene", latest("assets", "ground", "background", "camera"), nil),
		node("/root/assets", "a-assets", latest("groundTexture", "skyTexture", "voxel"), nil),
		node("/root/assets/groundTexture", "img", nil, map[string]Value{
			"src": String("/static/floor.jpg"),
			"alt": String(""),
		}),
		node("/root/assets/skyTexture", "img", nil, map[string]Value{
			"src": String("/static/sky.jpg"),
			"alt": String(""),
		}),
		node("/root/assets/voxel", "a-mixin", nil, map[string]Value{
			"geometry": String("primitive: box; height: 0.5; width: 0.5; depth: 0.5"),
			"material": String("shader: standard"),
		}),
		withID(node("/root/ground", "a-cylinder", nil, map[string]Value{
			"src":    String("#groundTexture"),
			"radius": Int(32),
			"height": Float(0.1),
		}), "voxel"),
		node("/root/background", "a-sky", nil, map[string]Value{
			"src":          String("#skyTexture"),
			"radius":       Int(30),
			"theta-length": Int(90),
		}),
		node("/root/camera", "a-camera", latest("cursor"), nil),
		node("/root/camera/cursor", "a-cursor", nil, map[string]Value{
			"intersection-spawn": String("event: click; offset: 0.25 0.25 0.25; snap: 0.5 0.5 0.5; mixin: voxel"),
		}),
	}
}

func withID(d Document, id string) Document {
	d.ID = id
	return d
}
