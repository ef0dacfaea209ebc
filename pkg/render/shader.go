package render

import "strings"

// quadShader samples a 2D texture over projected quad geometry. The
// VERTEX and FRAGMENT defines select the stage.
const quadShader = `
#ifdef VERTEX
layout(location = 0) in vec2 aPos;
layout(location = 1) in vec2 aUV;
uniform mat4 uProjection;
out vec2 vUV;
void main() {
	vUV = aUV;
	gl_Position = uProjection * vec4(aPos, 0.0, 1.0);
}
#endif

#ifdef FRAGMENT
in vec2 vUV;
uniform sampler2D uTexture;
out vec4 fragColor;
void main() {
	fragColor = texture(uTexture, vUV);
}
#endif
`

func shaderSource(stage string) string {
	var sb strings.Builder
	sb.WriteString("#version 330 core\n")
	sb.WriteString("#define " + stage + "\n")
	sb.WriteString(quadShader)
	return sb.String()
}
