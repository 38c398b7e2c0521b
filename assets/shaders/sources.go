package shaders

// ShadowVertexGLSL renders scene geometry depth-only from a single cascade's
// light-space view-projection. It has no joint/weight inputs: skinned
// primitives are drawn with their unskinned (bind-pose) vertex positions,
// here and in the G-buffer pass.
const ShadowVertexGLSL = `
#version 450

layout(set = 0, binding = 0) uniform ShadowUniform {
    mat4 lightViewProjection;
} shadow;

layout(push_constant) uniform PushConstants {
    mat4 model;
} pc;

layout(location = 0) in vec3 inPosition;

void main() {
    gl_Position = shadow.lightViewProjection * pc.model * vec4(inPosition, 1.0);
}
`

const ShadowFragmentGLSL = `
#version 450

void main() {
    // Depth-only; no color output.
}
`

// GBufferVertexGLSL / GBufferFragmentGLSL write the four G-buffer
// attachments (albedo, normal, metallic/occlusion, emissive) for one
// primitive, driven by the per-material PBR factors and optional textures.
const GBufferVertexGLSL = `
#version 450

layout(set = 0, binding = 0) uniform CameraUniform {
    mat4 view;
    mat4 projection;
    mat4 viewProjection;
    mat4 inverseView;
    mat4 inverseProjection;
    vec3 eyePosition;
} camera;

layout(push_constant) uniform PushConstants {
    mat4 model;
    mat4 normalMatrix;
} pc;

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec4 inColor;
layout(location = 4) in vec3 inTangent;
layout(location = 5) in vec3 inBitangent;

layout(location = 0) out vec3 fragNormal;
layout(location = 1) out vec2 fragUV;
layout(location = 2) out vec4 fragColor;
layout(location = 3) out vec3 fragTangent;
layout(location = 4) out vec3 fragBitangent;

void main() {
    vec4 worldPos = pc.model * vec4(inPosition, 1.0);
    gl_Position = camera.viewProjection * worldPos;
    fragNormal = normalize(mat3(pc.normalMatrix) * inNormal);
    fragTangent = normalize(mat3(pc.model) * inTangent);
    fragBitangent = normalize(mat3(pc.model) * inBitangent);
    fragUV = inUV;
    fragColor = inColor;
}
`

const GBufferFragmentGLSL = `
#version 450

layout(set = 1, binding = 0) uniform sampler2D albedoTex;
layout(set = 1, binding = 1) uniform sampler2D metallicRoughnessTex;
layout(set = 1, binding = 2) uniform sampler2D normalTex;
layout(set = 1, binding = 3) uniform sampler2D occlusionTex;
layout(set = 1, binding = 4) uniform sampler2D emissiveTex;

layout(push_constant) uniform MaterialPushConstants {
    vec4 baseColorFactor;
    float metallicFactor;
    float roughnessFactor;
    float normalScale;
    float alphaCutoff;
    vec4 emissiveFactorStrength;
} mat_;

layout(location = 0) in vec3 fragNormal;
layout(location = 1) in vec2 fragUV;
layout(location = 2) in vec4 fragColor;
layout(location = 3) in vec3 fragTangent;
layout(location = 4) in vec3 fragBitangent;

layout(location = 0) out vec4 outAlbedo;
layout(location = 1) out vec4 outNormal;
layout(location = 2) out vec2 outMaterial;
layout(location = 3) out vec4 outEmissive;

void main() {
    vec4 albedo = texture(albedoTex, fragUV) * mat_.baseColorFactor * fragColor;
    if (albedo.a < mat_.alphaCutoff) {
        discard;
    }

    vec3 n = normalize(fragNormal);
    vec3 t = normalize(fragTangent);
    vec3 b = normalize(fragBitangent);
    mat3 tbn = mat3(t, b, n);
    vec3 tangentNormal = texture(normalTex, fragUV).xyz * 2.0 - 1.0;
    tangentNormal.xy *= mat_.normalScale;
    vec3 worldNormal = normalize(tbn * tangentNormal);

    vec2 mr = texture(metallicRoughnessTex, fragUV).bg;
    float metallic = mr.x * mat_.metallicFactor;
    float roughness = clamp(mr.y * mat_.roughnessFactor, 0.045, 1.0);
    float occlusion = texture(occlusionTex, fragUV).r;

    vec3 emissive = texture(emissiveTex, fragUV).rgb * mat_.emissiveFactorStrength.rgb * mat_.emissiveFactorStrength.a;

    outAlbedo = vec4(albedo.rgb, 1.0);
    outNormal = vec4(worldNormal * 0.5 + 0.5, roughness);
    outMaterial = vec2(metallic, occlusion);
    outEmissive = vec4(emissive, 1.0);
}
`

// FullscreenTriangleVertexGLSL draws a single triangle covering the viewport
// without a vertex buffer, shared by the lighting and composite passes.
const FullscreenTriangleVertexGLSL = `
#version 450

layout(location = 0) out vec2 fragUV;

void main() {
    fragUV = vec2((gl_VertexIndex << 1) & 2, gl_VertexIndex & 2);
    gl_Position = vec4(fragUV * 2.0 - 1.0, 0.0, 1.0);
}
`

// LightingFragmentGLSL reconstructs world position from G-buffer depth,
// evaluates the Cook-Torrance BRDF against one directional light plus a
// constant IBL-style ambient term, and applies cascaded shadow mapping with
// hardware PCF (sampler2DShadow, VK_COMPARE_OP_LESS). Near a cascade's far
// split it blends with the next cascade over a csmBlendFactor-sized
// fraction of that cascade's width, avoiding a visible seam.
const LightingFragmentGLSL = `
#version 450

layout(set = 0, binding = 0) uniform CameraUniform {
    mat4 view;
    mat4 projection;
    mat4 viewProjection;
    mat4 inverseView;
    mat4 inverseProjection;
    vec3 eyePosition;
} camera;

struct CascadeData {
    mat4 lightViewProjection;
    float splitFar;
};

layout(set = 0, binding = 1) uniform LightingParams {
    vec3 sunDirection;
    vec3 sunColor;
    float sunIntensity;
    vec3 ambientColor;
    float ambientIntensity;
    CascadeData cascades[3];
    float shadowBias;
    uint cascadeCount;
    float csmBlendFactor;
} lighting;

layout(set = 1, binding = 0) uniform sampler2D gAlbedo;
layout(set = 1, binding = 1) uniform sampler2D gNormal;
layout(set = 1, binding = 2) uniform sampler2D gMaterial;
layout(set = 1, binding = 3) uniform sampler2D gEmissive;
layout(set = 1, binding = 4) uniform sampler2D gDepth;

layout(set = 2, binding = 0) uniform sampler2DShadow shadowCascade0;
layout(set = 2, binding = 1) uniform sampler2DShadow shadowCascade1;
layout(set = 2, binding = 2) uniform sampler2DShadow shadowCascade2;

layout(location = 0) in vec2 fragUV;
layout(location = 0) out vec4 outColor;

const float PI = 3.14159265359;

float distributionGGX(vec3 n, vec3 h, float roughness) {
    float a = roughness * roughness;
    float a2 = a * a;
    float nDotH = max(dot(n, h), 0.0);
    float denom = (nDotH * nDotH * (a2 - 1.0) + 1.0);
    return a2 / (PI * denom * denom);
}

float geometrySmith(float nDotV, float nDotL, float roughness) {
    float r = roughness + 1.0;
    float k = (r * r) / 8.0;
    float ggxV = nDotV / (nDotV * (1.0 - k) + k);
    float ggxL = nDotL / (nDotL * (1.0 - k) + k);
    return ggxV * ggxL;
}

vec3 fresnelSchlick(float cosTheta, vec3 f0) {
    return f0 + (1.0 - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 worldPositionFromDepth(float depth) {
    vec4 clip = vec4(fragUV * 2.0 - 1.0, depth, 1.0);
    vec4 view = camera.inverseProjection * clip;
    view /= view.w;
    vec4 world = camera.inverseView * view;
    return world.xyz;
}

float sampleShadow(vec3 worldPos, int cascadeIndex) {
    vec4 lightSpace = lighting.cascades[cascadeIndex].lightViewProjection * vec4(worldPos, 1.0);
    lightSpace.xyz /= lightSpace.w;
    vec2 uv = lightSpace.xy * 0.5 + 0.5;
    float compareDepth = lightSpace.z - lighting.shadowBias;

    if (cascadeIndex == 0) return texture(shadowCascade0, vec3(uv, compareDepth));
    if (cascadeIndex == 1) return texture(shadowCascade1, vec3(uv, compareDepth));
    return texture(shadowCascade2, vec3(uv, compareDepth));
}

void main() {
    float depth = texture(gDepth, fragUV).r;
    if (depth >= 1.0) {
        outColor = vec4(lighting.ambientColor * lighting.ambientIntensity, 1.0);
        return;
    }

    vec3 worldPos = worldPositionFromDepth(depth);
    vec3 albedo = texture(gAlbedo, fragUV).rgb;
    vec4 normalRough = texture(gNormal, fragUV);
    vec3 n = normalize(normalRough.xyz * 2.0 - 1.0);
    float roughness = normalRough.a;
    vec2 matSample = texture(gMaterial, fragUV).rg;
    float metallic = matSample.r;
    float occlusion = matSample.g;
    vec3 emissive = texture(gEmissive, fragUV).rgb;

    vec3 v = normalize(camera.eyePosition - worldPos);
    vec3 l = normalize(-lighting.sunDirection);
    vec3 h = normalize(v + l);

    vec3 f0 = mix(vec3(0.04), albedo, metallic);
    float nDotV = max(dot(n, v), 1e-4);
    float nDotL = max(dot(n, l), 0.0);

    float viewDepth = -(camera.view * vec4(worldPos, 1.0)).z;
    int cascadeIndex = int(lighting.cascadeCount) - 1;
    for (int i = 0; i < int(lighting.cascadeCount); i++) {
        if (viewDepth < lighting.cascades[i].splitFar) {
            cascadeIndex = i;
            break;
        }
    }
    float shadow = sampleShadow(worldPos, cascadeIndex);

    // Feather across the boundary into the next cascade over a fraction
    // (csmBlendFactor) of this cascade's size, so csmBlendFactor=0 gives a
    // hard boundary (no interpolation) and csmBlendFactor=1 blends across
    // the cascade's entire width.
    int nextCascade = cascadeIndex + 1;
    if (lighting.csmBlendFactor > 0.0 && nextCascade < int(lighting.cascadeCount)) {
        float prevSplit = cascadeIndex == 0 ? 0.0 : lighting.cascades[cascadeIndex - 1].splitFar;
        float cascadeSize = lighting.cascades[cascadeIndex].splitFar - prevSplit;
        float blendDist = cascadeSize * lighting.csmBlendFactor;
        float distToEdge = lighting.cascades[cascadeIndex].splitFar - viewDepth;
        if (distToEdge < blendDist) {
            float nextShadow = sampleShadow(worldPos, nextCascade);
            float t = 1.0 - clamp(distToEdge / max(blendDist, 1e-4), 0.0, 1.0);
            shadow = mix(shadow, nextShadow, t);
        }
    }

    vec3 lighted = vec3(0.0);
    if (nDotL > 0.0) {
        float ndf = distributionGGX(n, h, roughness);
        float g = geometrySmith(nDotV, nDotL, roughness);
        vec3 f = fresnelSchlick(max(dot(h, v), 0.0), f0);

        vec3 numerator = ndf * g * f;
        float denominator = 4.0 * nDotV * nDotL + 1e-4;
        vec3 specular = numerator / denominator;

        vec3 kd = (vec3(1.0) - f) * (1.0 - metallic);
        vec3 radiance = lighting.sunColor * lighting.sunIntensity;
        lighted = (kd * albedo / PI + specular) * radiance * nDotL * shadow;
    }

    vec3 ambient = lighting.ambientColor * lighting.ambientIntensity * albedo * occlusion;
    outColor = vec4(ambient + lighted + emissive, 1.0);
}
`

// ExposureHistogramComputeGLSL builds a 256-bin log-luminance histogram of
// the HDR target, one invocation per pixel (in 16x16 workgroups), each
// adding to its bin via atomics.
const ExposureHistogramComputeGLSL = `
#version 450

layout(local_size_x = 16, local_size_y = 16) in;

layout(set = 0, binding = 0, rgba16f) uniform readonly image2D hdrImage;
layout(set = 0, binding = 1) buffer HistogramBuffer {
    uint bins[256];
} histogram;

layout(push_constant) uniform PushConstants {
    uint width;
    uint height;
    float minLogLuminance;
    float logLuminanceRange;
} pc;

float luminance(vec3 color) {
    return dot(color, vec3(0.2126, 0.7152, 0.0722));
}

void main() {
    ivec2 coord = ivec2(gl_GlobalInvocationID.xy);
    if (coord.x >= int(pc.width) || coord.y >= int(pc.height)) {
        return;
    }

    vec3 color = imageLoad(hdrImage, coord).rgb;
    float lum = luminance(color);
    uint bin = 0;
    if (lum >= 1e-4) {
        float logLum = clamp((log2(lum) - pc.minLogLuminance) / pc.logLuminanceRange, 0.0, 1.0);
        bin = uint(logLum * 254.0) + 1;
    }
    atomicAdd(histogram.bins[bin], 1);
}
`

// ExposureAdaptComputeGLSL reduces the histogram to its 50th-percentile
// (median) bin's log-luminance and exponentially adapts the previous
// frame's exposure toward it, following the classic eye-adaptation
// formulation.
const ExposureAdaptComputeGLSL = `
#version 450

layout(local_size_x = 1) in;

layout(set = 0, binding = 1) buffer HistogramBuffer {
    uint bins[256];
} histogram;

layout(set = 0, binding = 2) buffer ExposureBuffer {
    float averageLuminance;
} result;

layout(push_constant) uniform PushConstants {
    uint width;
    uint height;
    float minLogLuminance;
    float logLuminanceRange;
    float deltaTime;
    float adaptSpeed;
    float targetGray;
} pc;

void main() {
    uint countedPixels = 0;
    for (uint i = 1; i < 256; i++) {
        countedPixels += histogram.bins[i];
    }

    // Walk the histogram again to find the bin holding the 50th-percentile
    // (median) sample, clearing bins for the next frame's accumulation as
    // we go.
    uint medianBin = 0;
    uint cumulative = 0;
    uint half = countedPixels / 2;
    bool foundMedian = false;
    for (uint i = 1; i < 256; i++) {
        cumulative += histogram.bins[i];
        if (!foundMedian && countedPixels > 0 && cumulative > half) {
            medianBin = i - 1;
            foundMedian = true;
        }
        histogram.bins[i] = 0;
    }
    histogram.bins[0] = 0;

    float logLum = (float(medianBin) / 254.0) * pc.logLuminanceRange + pc.minLogLuminance;
    float targetLuminance = exp2(logLum);

    float previous = result.averageLuminance;
    if (previous <= 0.0) {
        previous = targetLuminance;
    }
    float adapted = previous + (targetLuminance - previous) * (1.0 - exp(-pc.deltaTime * pc.adaptSpeed));
    result.averageLuminance = adapted;
}
`

// BloomDownsampleComputeGLSL reads one mip and writes a box-filtered,
// threshold-clamped half-resolution result to the next mip down.
const BloomDownsampleComputeGLSL = `
#version 450

layout(local_size_x = 8, local_size_y = 8) in;

layout(set = 0, binding = 0) uniform sampler2D srcMip;
layout(set = 0, binding = 1, rgba16f) uniform writeonly image2D dstMip;

layout(push_constant) uniform PushConstants {
    uint srcWidth;
    uint srcHeight;
    float threshold;
    float intensity;
} pc;

void main() {
    ivec2 dstCoord = ivec2(gl_GlobalInvocationID.xy);
    ivec2 dstSize = imageSize(dstMip);
    if (dstCoord.x >= dstSize.x || dstCoord.y >= dstSize.y) {
        return;
    }

    vec2 srcUV = (vec2(dstCoord) + 0.5) / vec2(dstSize);
    vec3 color = texture(srcMip, srcUV).rgb;
    float brightness = max(max(color.r, color.g), color.b);
    float contribution = max(brightness - pc.threshold, 0.0) / max(brightness, 1e-4);
    imageStore(dstMip, dstCoord, vec4(color * contribution, 1.0));
}
`

// BloomUpsampleComputeGLSL additively blends an upsampled lower mip back
// into a higher-resolution mip, scaled by the configured bloom intensity.
const BloomUpsampleComputeGLSL = `
#version 450

layout(local_size_x = 8, local_size_y = 8) in;

layout(set = 0, binding = 0) uniform sampler2D srcMip;
layout(set = 0, binding = 1, rgba16f) uniform image2D dstMip;

layout(push_constant) uniform PushConstants {
    uint srcWidth;
    uint srcHeight;
    float threshold;
    float intensity;
} pc;

void main() {
    ivec2 dstCoord = ivec2(gl_GlobalInvocationID.xy);
    ivec2 dstSize = imageSize(dstMip);
    if (dstCoord.x >= dstSize.x || dstCoord.y >= dstSize.y) {
        return;
    }

    vec2 srcUV = (vec2(dstCoord) + 0.5) / vec2(dstSize);
    vec3 upsampled = texture(srcMip, srcUV).rgb;
    vec3 existing = imageLoad(dstMip, dstCoord).rgb;
    imageStore(dstMip, dstCoord, vec4(existing + upsampled * pc.intensity, 1.0));
}
`

// CompositeFragmentGLSL tonemaps the HDR+bloom result with the adapted
// exposure and optionally applies FXAA as a final antialiasing pass.
const CompositeFragmentGLSL = `
#version 450

layout(set = 0, binding = 0) uniform sampler2D hdrColor;
layout(set = 0, binding = 1) uniform sampler2D bloomColor;
layout(set = 0, binding = 2) buffer ExposureBuffer {
    float averageLuminance;
} exposureResult;

layout(set = 0, binding = 3) uniform CompositeParams {
    float bloomIntensity;
    float exposure;
    uint fxaaEnabled;
    vec2 inverseResolution;
} params;

layout(location = 0) in vec2 fragUV;
layout(location = 0) out vec4 outColor;

vec3 acesTonemap(vec3 color) {
    const float a = 2.51;
    const float b = 0.03;
    const float c = 2.43;
    const float d = 0.59;
    const float e = 0.14;
    return clamp((color * (a * color + b)) / (color * (c * color + d) + e), 0.0, 1.0);
}

vec3 fxaa(vec3 center) {
    vec2 uv = fragUV;
    vec3 n = textureOffset(hdrColor, uv, ivec2(0, -1)).rgb;
    vec3 s = textureOffset(hdrColor, uv, ivec2(0, 1)).rgb;
    vec3 e = textureOffset(hdrColor, uv, ivec2(1, 0)).rgb;
    vec3 w = textureOffset(hdrColor, uv, ivec2(-1, 0)).rgb;
    return (center + n + s + e + w) / 5.0;
}

void main() {
    vec3 hdr = texture(hdrColor, fragUV).rgb;
    vec3 bloom = texture(bloomColor, fragUV).rgb;
    vec3 combined = hdr + bloom * params.bloomIntensity;

    float exposure = params.exposure / max(exposureResult.averageLuminance, 1e-4);
    vec3 tonemapped = acesTonemap(combined * exposure);

    if (params.fxaaEnabled != 0) {
        tonemapped = fxaa(tonemapped);
    }

    outColor = vec4(tonemapped, 1.0);
}
`

// DebugCascadeFragmentGLSL writes a single shadow cascade's raw depth as
// grayscale (cascades use an orthographic projection, so this depth is
// already linear), used by the debug overlay to visualize cascade
// coverage in a corner of the frame rather than blitting the raw depth
// texture (whose format isn't blit-compatible with the swapchain's).
const DebugCascadeFragmentGLSL = `
#version 450

layout(set = 0, binding = 0) uniform sampler2D cascadeDepth;

layout(location = 0) in vec2 fragUV;
layout(location = 0) out vec4 outColor;

void main() {
    float depth = texture(cascadeDepth, fragUV).r;
    outColor = vec4(vec3(depth), 1.0);
}
`
